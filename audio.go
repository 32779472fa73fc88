package mleml

type (
	// AudioContext plays sounds on an audio device.
	AudioContext interface {
		// Play starts playing the sound and returns immediately.
		Play(s Sound) (CloserWaiter, error)
		Close() error
	}

	// CloserWaiter is a sound that is being played. Wait blocks until the
	// sound has finished and Close stops it early.
	CloserWaiter interface {
		Close() error
		Wait()
	}
)
