package hardware

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwhitley/credflow/internal/logger"
)

// writeStub drops an executable shell script standing in for ssh-keygen.
func writeStub(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stub-keygen")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))
	return path
}

// keygenStub mimics ssh-keygen's output side effects: it writes the key
// pair at the -f argument.
const keygenStub = `
key=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-f" ]; then key="$2"; fi
  shift
done
printf 'stub private key\n' > "$key"
printf 'ssh-ed25519 AAAA stub\n' > "$key.pub"
`

func TestFIDO2CheckSupport(t *testing.T) {
	p := NewFIDO2Provider(logger.Noop())

	p.keygenPath = "credflow-no-such-binary"
	support := p.CheckSupport()
	assert.False(t, support.Supported)
	assert.Contains(t, support.Reason, "ssh-keygen")

	p.keygenPath = writeStub(t, keygenStub)
	assert.True(t, p.CheckSupport().Supported)
}

func TestParseTokenList(t *testing.T) {
	out := []byte(`/dev/hidraw2: vendor=0x1050, product=0x0407 (Yubico YubiKey OTP+FIDO+CCID)
/dev/hidraw5: vendor=0x32a3, product=0x3201 (SoloKeys Solo 2)

`)
	devices := parseTokenList(out)
	require.Len(t, devices, 2)
	assert.Equal(t, "/dev/hidraw2", devices[0].Path)
	assert.Equal(t, "Yubico", devices[0].Manufacturer)
	assert.Equal(t, "YubiKey OTP+FIDO+CCID", devices[0].Product)
	assert.Equal(t, "SoloKeys", devices[1].Manufacturer)

	assert.Empty(t, parseTokenList(nil))
}

func TestFIDO2Generate(t *testing.T) {
	p := NewFIDO2Provider(logger.Noop())
	p.keygenPath = writeStub(t, keygenStub)

	var touched []string
	p.TouchNotify = func(id string) { touched = append(touched, id) }

	dir := t.TempDir()
	res := p.Generate(context.Background(), FIDO2GenerateOptions{
		RequestID: "req-1",
		Dir:       dir,
		Name:      "id_test_sk",
		Comment:   "test@host",
	})
	require.True(t, res.Success, "generate failed: %s", res.Error)
	assert.Contains(t, string(res.PrivateKey), "stub private key")
	assert.Contains(t, string(res.PublicKey), "ssh-ed25519")
	assert.Equal(t, []string{"req-1"}, touched)

	// Completed generations are deregistered.
	assert.False(t, p.Cancel("req-1"))
}

func TestFIDO2GenerateRefusesExistingKey(t *testing.T) {
	p := NewFIDO2Provider(logger.Noop())
	p.keygenPath = writeStub(t, keygenStub)

	dir := t.TempDir()
	keyPath := filepath.Join(dir, "id_test_sk")
	require.NoError(t, os.WriteFile(keyPath, []byte("existing"), 0600))

	res := p.Generate(context.Background(), FIDO2GenerateOptions{Dir: dir, Name: "id_test_sk"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "already exists")
}

func TestFIDO2GenerateTimeout(t *testing.T) {
	p := NewFIDO2Provider(logger.Noop())
	p.keygenPath = writeStub(t, "sleep 10\n")
	p.timeout = 50 * time.Millisecond

	dir := t.TempDir()
	res := p.Generate(context.Background(), FIDO2GenerateOptions{Dir: dir, Name: "id_test_sk"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "timed out")

	// Nothing half-written left behind.
	_, err := os.Stat(filepath.Join(dir, "id_test_sk"))
	assert.True(t, os.IsNotExist(err))
}

func TestFIDO2Cancel(t *testing.T) {
	p := NewFIDO2Provider(logger.Noop())
	p.keygenPath = writeStub(t, "sleep 10\n")

	assert.False(t, p.Cancel("unknown"))

	dir := t.TempDir()
	done := make(chan GenerateResult, 1)
	go func() {
		done <- p.Generate(context.Background(), FIDO2GenerateOptions{
			RequestID: "req-cancel",
			Dir:       dir,
			Name:      "id_test_sk",
		})
	}()

	// Wait for the generation to register itself.
	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		_, ok := p.active["req-cancel"]
		return ok
	}, time.Second, 5*time.Millisecond)

	assert.True(t, p.Cancel("req-cancel"))

	res := <-done
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "cancelled")
}
