package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RichardoC/dehost/internal/deploy"
	"github.com/RichardoC/dehost/internal/domainlink"
	"github.com/RichardoC/dehost/internal/models"
)

func TestTerminalNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := newTerminalNotifier(&buf)

	n.Notify(deploy.Notification{
		Level:         deploy.LevelSuccess,
		Message:       "Deployed to IPFS!",
		URL:           "https://gateway.lighthouse.storage/ipfs/Qm123",
		DomainLinkCID: "Qm123",
	})

	out := buf.String()
	require.Contains(t, out, "Deployed to IPFS!")
	require.Contains(t, out, "https://gateway.lighthouse.storage/ipfs/Qm123")
	require.Contains(t, out, "dehost link --cid Qm123")
}

func TestRenderRecord(t *testing.T) {
	out := renderRecord(domainlink.TXTRecord("example.com", "Qm123"))
	require.Contains(t, out, "TXT")
	require.Contains(t, out, "_dnslink.example.com")
	require.Contains(t, out, "dnslink=/ipfs/Qm123")
}

func TestShareText(t *testing.T) {
	text, err := shareText(strings.NewReader("ignored"), []string{"hello"})
	require.NoError(t, err)
	require.Equal(t, "hello", text)

	text, err = shareText(strings.NewReader("from stdin\n"), nil)
	require.NoError(t, err)
	require.Equal(t, "from stdin", text)

	text, err = shareText(strings.NewReader("dash\n"), []string{"-"})
	require.NoError(t, err)
	require.Equal(t, "dash", text)
}

func TestDeployMessages(t *testing.T) {
	t.Cleanup(func() { deployFile, deployConversation = "", 0 })

	path := filepath.Join(t.TempDir(), "index.html")
	require.NoError(t, os.WriteFile(path, []byte("<!DOCTYPE html><html></html>"), 0o644))
	deployFile = path

	messages, err := deployMessages(func(int64) ([]models.Message, error) {
		t.Fatal("conversation must not be loaded when a file is given")
		return nil, nil
	})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, models.RoleAssistant, messages[0].Role)

	doc, err := deploy.Extract(messages)
	require.NoError(t, err)
	require.Equal(t, "<!DOCTYPE html><html></html>", doc)

	deployFile = ""
	deployConversation = 7
	var loaded int64
	_, err = deployMessages(func(id int64) ([]models.Message, error) {
		loaded = id
		return nil, nil
	})
	require.NoError(t, err)
	require.EqualValues(t, 7, loaded)
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, nil)
	require.Empty(t, buf.String())

	// Action errors were already shown by the notifier.
	printError(&buf, fmt.Errorf("deploy: %w", deploy.ErrNoContent))
	require.Empty(t, buf.String())

	printError(&buf, errors.New("exactly one of --conversation or --file is required"))
	require.Contains(t, buf.String(), "Error: exactly one of --conversation or --file is required")
}
