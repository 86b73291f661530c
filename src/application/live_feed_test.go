package application

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"golang.org/x/text/currency"
)

func TestLiveFeed(t *testing.T) {
	t.Parallel()

	feed := NewLiveFeed()
	icId, otherIcId := uuid.New(), uuid.New()

	changes, unsubscribe := feed.Subscribe(icId)

	// notifications coalesce while nobody reads
	feed.Publish(icId)
	feed.Publish(icId)
	feed.Publish(otherIcId)

	assert.Len(t, changes, 1)
	<-changes
	assert.Len(t, changes, 0)

	unsubscribe()
	feed.Publish(icId)
	assert.Len(t, changes, 0)
}

func TestCurrencySymbol(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "₹", CurrencySymbol(currency.INR))
	assert.Equal(t, "€", CurrencySymbol(currency.EUR))
}
