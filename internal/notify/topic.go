package notify

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

// LoadOrCreateTopic returns the persisted ntfy subscription topic,
// generating and saving a fresh one on first run so the same topic
// survives restarts.
func LoadOrCreateTopic(path string) (string, error) {
	if data, err := os.ReadFile(path); err == nil {
		if topic := strings.TrimSpace(string(data)); topic != "" {
			return topic, nil
		}
	}

	topic := uuid.NewString()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create topic directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(topic), 0o600); err != nil {
		return "", fmt.Errorf("failed to persist topic: %w", err)
	}

	return topic, nil
}

// TopicQR renders the subscription topic as a terminal-printable QR code
func TopicQR(topic string) (string, error) {
	code, err := qrcode.New(topic, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to render topic QR: %w", err)
	}
	return code.ToSmallString(false), nil
}
