package progress

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ashureev/skill-accelerator/internal/domain"
)

// RestoreStatus reports where a restored progress value came from.
type RestoreStatus int

const (
	// RestoredStored means the stored blob was decoded.
	RestoredStored RestoreStatus = iota
	// RestoredDefault means nothing was stored and the default was used.
	RestoredDefault
	// RestoredRecovered means the stored blob was malformed and the
	// default replaced it.
	RestoredRecovered
)

func (s RestoreStatus) String() string {
	switch s {
	case RestoredStored:
		return "stored"
	case RestoredDefault:
		return "default"
	case RestoredRecovered:
		return "recovered"
	default:
		return "unknown"
	}
}

// Restore decodes a stored progress blob. An empty blob yields the default
// progress; a malformed blob also yields the default, with the decode error
// returned alongside for logging.
func (e *Engine) Restore(raw string, now time.Time) (domain.UserProgress, RestoreStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return domain.DefaultProgress(now), RestoredDefault, nil
	}
	var p domain.UserProgress
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return domain.DefaultProgress(now), RestoredRecovered, fmt.Errorf("decode progress: %w", err)
	}
	if p.LastLoginDate == "" {
		p.LastLoginDate = domain.FormatDate(now)
	}
	return e.Normalize(p), RestoredStored, nil
}

// Encode serializes progress for the state store.
func Encode(p domain.UserProgress) (string, error) {
	data, err := json.Marshal(p.Clone())
	if err != nil {
		return "", fmt.Errorf("encode progress: %w", err)
	}
	return string(data), nil
}
