package event_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/storefront-go/storefront/pkg/event"
)

func TestFireReachesEveryListener(t *testing.T) {
	bus := event.NewBus()
	var got []any
	bus.Listen("sale.status", func(p any) { got = append(got, p) })
	bus.Listen("sale.status", func(p any) { got = append(got, p) })
	bus.Listen("other", func(any) { t.Fatal("wrong event") })

	bus.Fire("sale.status", 42)
	assert.Equal(t, []any{42, 42}, got)
}

func TestFireAsync(t *testing.T) {
	bus := event.NewBus()
	var wg sync.WaitGroup
	wg.Add(2)
	bus.Listen("e", func(any) { wg.Done() })
	bus.Listen("e", func(any) { wg.Done() })

	bus.FireAsync("e", nil)
	wg.Wait()
}

func TestNilBus(t *testing.T) {
	var bus *event.Bus
	assert.NotPanics(t, func() {
		bus.Fire("e", nil)
		bus.FireAsync("e", nil)
	})
}

func TestUnsubscribe(t *testing.T) {
	bus := event.NewBus()
	var kept, dropped int
	bus.Listen("e", func(any) { kept++ })
	stop := bus.Subscribe("e", func(any) { dropped++ })

	bus.Fire("e", nil)
	stop()
	stop()
	bus.Fire("e", nil)

	assert.Equal(t, 2, kept)
	assert.Equal(t, 1, dropped)
}
