package nostr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMessage(t *testing.T) {
	t.Run("event", func(t *testing.T) {
		env, err := ParseMessage([]byte(`["EVENT","sub1",{"id":"abc","pubkey":"pk","created_at":10,` +
			`"kind":1,"tags":[["e","x"]],"content":"hi","sig":"s"}]`))
		require.NoError(t, err)

		ev, ok := env.(*EventEnvelope)
		require.True(t, ok)
		require.NotNil(t, ev.SubscriptionID)
		require.Equal(t, "sub1", *ev.SubscriptionID)
		require.Equal(t, "abc", ev.Event.ID)
		require.Equal(t, 1, ev.Event.Kind)
		require.EqualValues(t, 10, ev.Event.CreatedAt)
		require.Equal(t, []string{"x"}, TagValues(ev.Event.Tags, "e"))
	})

	t.Run("eose", func(t *testing.T) {
		env, err := ParseMessage([]byte(`["EOSE","sub1"]`))
		require.NoError(t, err)
		eose, ok := env.(*EOSEEnvelope)
		require.True(t, ok)
		require.Equal(t, "sub1", string(*eose))
	})

	t.Run("ok with reason", func(t *testing.T) {
		env, err := ParseMessage([]byte(`["OK","abc",false,"blocked: spam"]`))
		require.NoError(t, err)
		require.Equal(t, &OKEnvelope{EventID: "abc", OK: false, Reason: "blocked: spam"}, env)
	})

	t.Run("notice", func(t *testing.T) {
		env, err := ParseMessage([]byte(`["NOTICE","slow down"]`))
		require.NoError(t, err)
		notice, ok := env.(*NoticeEnvelope)
		require.True(t, ok)
		require.Equal(t, "slow down", string(*notice))
	})

	t.Run("closed", func(t *testing.T) {
		env, err := ParseMessage([]byte(`["CLOSED","sub1","auth-required: login"]`))
		require.NoError(t, err)
		require.Equal(t, &ClosedEnvelope{SubscriptionID: "sub1", Reason: "auth-required: login"}, env)
	})

	t.Run("unknown label", func(t *testing.T) {
		_, err := ParseMessage([]byte(`["SHOUT","sub1"]`))
		require.ErrorIs(t, err, ErrUnknownMessage)
	})

	t.Run("not a frame", func(t *testing.T) {
		_, err := ParseMessage([]byte(`{"not":"a frame"}`))
		require.ErrorIs(t, err, ErrUnknownMessage)
	})
}

func TestReqFrame(t *testing.T) {
	since := Timestamp(100)
	frame, err := ReqFrame("sub1", Filters{
		{Kinds: []int{1}, Authors: []string{"pk"}},
		{Tags: TagMap{"e": {"x"}}, Since: &since, Limit: 5},
	})
	require.NoError(t, err)

	env, err := ParseMessage(frame)
	require.NoError(t, err)
	req, ok := env.(*ReqEnvelope)
	require.True(t, ok)
	require.Equal(t, "sub1", req.SubscriptionID)
	require.Len(t, req.Filters, 2)
	require.Equal(t, []int{1}, req.Filters[0].Kinds)
	require.Equal(t, []string{"pk"}, req.Filters[0].Authors)
	require.Equal(t, []string{"x"}, req.Filters[1].Tags["e"])
	require.NotNil(t, req.Filters[1].Since)
	require.EqualValues(t, 100, *req.Filters[1].Since)
	require.Equal(t, 5, req.Filters[1].Limit)
}

func TestCloseFrame(t *testing.T) {
	frame, err := CloseFrame("sub1")
	require.NoError(t, err)
	require.JSONEq(t, `["CLOSE","sub1"]`, string(frame))
}

func TestEventFrame_EmptyTags(t *testing.T) {
	frame, err := EventFrame(&Event{ID: "abc", PubKey: "pk", Kind: 1})
	require.NoError(t, err)
	require.Contains(t, string(frame), `"tags":[]`)

	frame, err = SubscriptionEventFrame("sub1", &Event{ID: "abc", PubKey: "pk", Kind: 1})
	require.NoError(t, err)
	env, err := ParseMessage(frame)
	require.NoError(t, err)
	require.Equal(t, "sub1", *env.(*EventEnvelope).SubscriptionID)
}
