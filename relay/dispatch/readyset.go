package dispatch

// urlSet is a set of normalized relay urls.
type urlSet map[string]struct{}

func (s urlSet) add(url string) {
	s[url] = struct{}{}
}

func (s urlSet) remove(url string) {
	delete(s, url)
}

func (s urlSet) has(url string) bool {
	_, ok := s[url]
	return ok
}
