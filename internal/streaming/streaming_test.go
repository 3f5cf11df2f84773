package streaming

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishAccumulatesPerTopic(t *testing.T) {
	p := NewLogPublisher()

	require.NoError(t, p.Publish("token", []byte("a")))
	require.NoError(t, p.Publish("token", []byte("b")))
	require.NoError(t, p.Publish("fee", []byte("c")))

	require.Equal(t, [][]byte{[]byte("a"), []byte("b")}, p.Messages("token"))
	require.Equal(t, [][]byte{[]byte("c")}, p.Messages("fee"))
}

func TestMessagesReturnsNilForUnpublishedTopic(t *testing.T) {
	p := NewLogPublisher()
	require.Nil(t, p.Messages("never-published"))
}

func TestPublishCopiesPayloadSoCallerMutationIsSafe(t *testing.T) {
	p := NewLogPublisher()
	payload := []byte("original")
	require.NoError(t, p.Publish("t", payload))

	payload[0] = 'X'

	require.Equal(t, []byte("original"), p.Messages("t")[0])
}

func TestTopicsListsEveryPublishedTopic(t *testing.T) {
	p := NewLogPublisher()
	require.NoError(t, p.Publish("token", []byte("a")))
	require.NoError(t, p.Publish("fee", []byte("b")))

	require.ElementsMatch(t, []string{"token", "fee"}, p.Topics())
}
