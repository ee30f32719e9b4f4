package clock_test

import (
	"sync"
	"testing"
	"time"

	"github.com/artpar/postmeta/adapters/clock"
)

func TestSystem_UTC(t *testing.T) {
	now := clock.System{}.Now()
	if now.Location() != time.UTC {
		t.Errorf("location = %v, want UTC", now.Location())
	}
	if d := time.Since(now); d < 0 || d > time.Minute {
		t.Errorf("System.Now is off by %v", d)
	}
}

func TestFake_Advance(t *testing.T) {
	start := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	c := clock.NewFake(start)

	if !c.Now().Equal(start) {
		t.Fatalf("Now = %v, want %v", c.Now(), start)
	}

	got := c.Advance(90 * time.Minute)
	want := start.Add(90 * time.Minute)
	if !got.Equal(want) || !c.Now().Equal(want) {
		t.Errorf("after Advance: %v / %v, want %v", got, c.Now(), want)
	}
}

func TestFake_Concurrent(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0).UTC())

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Advance(time.Second)
			c.Now()
		}()
	}
	wg.Wait()

	if got := c.Now().Unix(); got != 100 {
		t.Errorf("Now = %d, want 100", got)
	}
}
