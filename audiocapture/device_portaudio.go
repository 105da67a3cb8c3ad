package audiocapture

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// portaudioDevice captures from the default system microphone.
// PortAudio reference-counts Initialize/Terminate pairs, so this coexists
// with the playback device using the same library.
type portaudioDevice struct {
	mu     sync.Mutex
	stream *portaudio.Stream
}

// DefaultDevice returns the default microphone.
func DefaultDevice() Device {
	return &portaudioDevice{}
}

func (d *portaudioDevice) Start(sampleRate, frameSize int, callback func(frame []int16)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream != nil {
		return ErrAlreadyCapturing
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize portaudio: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), frameSize, func(in []int16) {
		callback(in)
	})
	if err != nil {
		_ = portaudio.Terminate()
		return fmt.Errorf("open input stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return fmt.Errorf("start input stream: %w", err)
	}

	d.stream = stream
	return nil
}

func (d *portaudioDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream == nil {
		return nil
	}

	err := d.stream.Stop()
	if cerr := d.stream.Close(); err == nil {
		err = cerr
	}
	d.stream = nil
	_ = portaudio.Terminate()
	return err
}
