package order

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"github.com/roach88/emporium/internal/testutil"
)

func TestComposeMessageGolden(t *testing.T) {
	tests := []struct {
		priority string
		requests string
	}{
		{PriorityStandard, ""},
		{PriorityUrgent, "Ripe bananas please\nNo plastic bags"},
		{PriorityExpress, "   "},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, tt := range tests {
		t.Run(tt.priority, func(t *testing.T) {
			f := validFields(tt.priority)
			f.SpecialRequests = tt.requests
			msg := ComposeMessage(filledCart(t).Summary(), f, testutil.Epoch)
			g.Assert(t, "compose_"+tt.priority, []byte(msg))
		})
	}
}

func TestComposeMessageDeterministic(t *testing.T) {
	c := filledCart(t)
	f := validFields(PriorityUrgent)

	first := ComposeMessage(c.Summary(), f, testutil.Epoch)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ComposeMessage(c.Summary(), f, testutil.Epoch))
	}
}

func TestComposeMessageStandardHasNoFlag(t *testing.T) {
	msg := ComposeMessage(filledCart(t).Summary(), validFields(PriorityStandard), testutil.Epoch)
	assert.NotContains(t, msg, "URGENT ORDER")
	assert.NotContains(t, msg, "EXPRESS ORDER")
	assert.NotContains(t, msg, "Special Requests")
	assert.Contains(t, msg, "*Order Time:* Sat Mar 1 2025, 10:30 AM\n")
}
