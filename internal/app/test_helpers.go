package app

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/vk/brainjit/internal/config"
)

// SafeBuffer is a thread-safe buffer for capturing output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// TestStreams holds the buffers an app built by SetupAppTest writes to.
type TestStreams struct {
	Out *SafeBuffer
	Err *SafeBuffer
}

// SetupAppTest creates a new app instance for system testing. input feeds
// the program's standard input.
func SetupAppTest(t *testing.T, cfg *Config, loader config.Loader, input string) (*App, TestStreams) {
	t.Helper()

	streams := TestStreams{Out: &SafeBuffer{}, Err: &SafeBuffer{}}
	cfg.LogLevel = "debug"
	testApp := NewApp(Streams{In: strings.NewReader(input), Out: streams.Out, Err: streams.Err}, cfg, loader)

	t.Cleanup(func() {
		if os.Getenv("BRAINJIT_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), streams.Err.String())
		}
	})

	return testApp, streams
}
