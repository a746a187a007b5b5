package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-spend/internal/models"
)

func texts(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = string(m.Sender) + ":" + m.Text
	}
	return out
}

func TestAppendKeepsOrderAndAssignsIDs(t *testing.T) {
	s := New(time.Second)
	s.Append(models.BotMessage("one"))
	s.Append(models.UserMessage("two"))
	s.Append(models.BotMessage("three"))

	all := s.All()
	assert.Equal(t, []string{"bot:one", "user:two", "bot:three"}, texts(all))

	seen := map[string]bool{}
	for _, m := range all {
		require.NotEmpty(t, m.ID)
		require.False(t, seen[m.ID], "duplicate id %s", m.ID)
		seen[m.ID] = true
	}
}

func TestAllReturnsCopy(t *testing.T) {
	s := New(time.Second)
	s.Append(models.BotMessage("original"))

	all := s.All()
	all[0].Text = "mutated"

	assert.Equal(t, "original", s.All()[0].Text)
}

func TestAppendHistoryIsNotMergedWithEcho(t *testing.T) {
	s := New(time.Hour)
	defer s.Stop()

	s.Echo("spent 200 on food")
	s.AppendHistory([]models.Message{
		models.UserMessage("spent 200 on food"),
		models.BotMessage("Logged ₹200 for food"),
	})

	assert.Equal(t, []string{
		"user:spent 200 on food",
		"user:spent 200 on food",
		"bot:Logged ₹200 for food",
	}, texts(s.All()))
}

func TestAppendHistoryEmpty(t *testing.T) {
	s := New(time.Second)
	s.AppendHistory(nil)
	assert.Equal(t, 0, s.Len())
}

func TestEchoRaisesAwaitingForFixedDelay(t *testing.T) {
	s := New(20 * time.Millisecond)

	s.Echo("hello")
	require.True(t, s.Awaiting())
	require.Equal(t, 1, s.Len())

	// a reply arriving early does not clear the indicator
	s.Append(models.BotMessage("hi"))
	assert.True(t, s.Awaiting())

	require.Eventually(t, func() bool { return !s.Awaiting() }, time.Second, 5*time.Millisecond)
}

func TestChangesCoalesce(t *testing.T) {
	s := New(time.Second)
	s.Append(models.BotMessage("a"))
	s.Append(models.BotMessage("b"))

	select {
	case <-s.Changes():
	default:
		t.Fatal("expected a change signal")
	}
	select {
	case <-s.Changes():
		t.Fatal("signals should coalesce")
	default:
	}
}
