package player

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/peai/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var id1 = Identity{Bvid: "BV1xx411c7mD", Page: 1}

func TestMachineTransitions(t *testing.T) {
	tests := []struct {
		name    string
		setup   []Event
		event   Event
		want    State
		wantErr bool
	}{
		{name: "loading to loaded", event: EventLoaded, want: Loaded},
		{name: "loading to errored", event: EventFailed, want: Errored},
		{name: "errored retry", setup: []Event{EventFailed}, event: EventRetry, want: Loading},
		{name: "retry while loading", event: EventRetry, want: Loading, wantErr: true},
		{name: "retry while loaded", setup: []Event{EventLoaded}, event: EventRetry, want: Loaded, wantErr: true},
		{name: "loaded twice", setup: []Event{EventLoaded}, event: EventLoaded, want: Loaded, wantErr: true},
		{name: "failure after loaded", setup: []Event{EventLoaded}, event: EventFailed, want: Loaded, wantErr: true},
		{name: "load after error", setup: []Event{EventFailed}, event: EventLoaded, want: Errored, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine(id1)
			for _, ev := range tt.setup {
				_, err := m.Fire(ev)
				require.NoError(t, err)
			}

			got, err := m.Fire(tt.event)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, m.State())
			if tt.wantErr {
				assert.ErrorIs(t, err, shared.ErrInvalidTransition)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMachineBind(t *testing.T) {
	t.Run("same identity is a no-op", func(t *testing.T) {
		m := NewMachine(id1)
		_, _ = m.Fire(EventLoaded)

		assert.Equal(t, Loaded, m.Bind(id1))
	})

	t.Run("new identity resets from every state", func(t *testing.T) {
		for _, setup := range [][]Event{nil, {EventLoaded}, {EventFailed}} {
			m := NewMachine(id1)
			for _, ev := range setup {
				_, _ = m.Fire(ev)
			}

			next := Identity{Bvid: id1.Bvid, Page: 2}
			assert.Equal(t, Loading, m.Bind(next))
			assert.Equal(t, next, m.Identity())
			assert.Nil(t, m.Cause())
		}
	})

	t.Run("rebinding abandons the pending load", func(t *testing.T) {
		m := NewMachine(id1)
		pending := m.Current()

		m.Bind(Identity{Bvid: "BV1Ht411v7Ue", Page: 1})

		_, err := pending.Wait(context.Background())
		assert.ErrorIs(t, err, ErrAbandoned)
		assert.NotSame(t, pending, m.Current())
	})
}

func TestLoad(t *testing.T) {
	t.Run("resolves with loaded", func(t *testing.T) {
		m := NewMachine(id1)
		load := m.Current()

		go func() {
			time.Sleep(10 * time.Millisecond)
			_, _ = m.Fire(EventLoaded)
		}()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		got, err := load.Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, Loaded, got)
	})

	t.Run("resolves with errored", func(t *testing.T) {
		m := NewMachine(id1)
		_, _ = m.Fire(EventFailed)

		got, err := m.Current().Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Errored, got)
		assert.ErrorIs(t, m.Cause(), shared.ErrLoad)
	})

	t.Run("hung frame never settles", func(t *testing.T) {
		m := NewMachine(id1)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := m.Current().Wait(ctx)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
		assert.Equal(t, Loading, m.State())
	})

	t.Run("retry starts a fresh load", func(t *testing.T) {
		m := NewMachine(id1)
		_, _ = m.Fire(EventFailed)
		first := m.Current()

		_, err := m.Fire(EventRetry)
		require.NoError(t, err)

		second := m.Current()
		assert.NotSame(t, first, second)
		select {
		case <-second.Done():
			t.Fatal("fresh load should be pending")
		default:
		}
	})
}

func TestParseEvent(t *testing.T) {
	for name, want := range map[string]Event{"loaded": EventLoaded, "failed": EventFailed, "error": EventFailed, "retry": EventRetry} {
		got, err := ParseEvent(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseEvent("explode")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
