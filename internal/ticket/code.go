package ticket

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/zulandar/millwright/internal/models"
)

// Codes look like CNC-0126-0001: uppercased equipment tag, month+year period
// marker, zero-padded per-period sequence. The code is generated once and
// never changes; a unique index on tickets.code is the hard guarantee behind
// the sequence heuristic.

var codePattern = regexp.MustCompile(`^[A-Z0-9]{1,8}-\d{4}-\d{4}$`)

var nonAlnum = regexp.MustCompile(`[^A-Z0-9]`)

// ValidCode reports whether code matches the ticket code grammar.
func ValidCode(code string) bool { return codePattern.MatchString(code) }

// codeTag normalizes a machine type into the code's equipment tag.
func codeTag(machineType string) string {
	tag := nonAlnum.ReplaceAllString(strings.ToUpper(machineType), "")
	if tag == "" {
		tag = "GEN"
	}
	if len(tag) > 8 {
		tag = tag[:8]
	}
	return tag
}

// generateCode builds the next code for the machine type and current period
// by counting existing codes with the same prefix. Concurrent creators can
// land on the same sequence number; the caller retries on the unique-index
// collision.
func (s *Service) generateCode(machineType string, now time.Time) (string, error) {
	prefix := fmt.Sprintf("%s-%s", codeTag(machineType), now.Format("0106"))

	var count int64
	err := s.db.Model(&models.Ticket{}).
		Where("code LIKE ?", prefix+"-%").Count(&count).Error
	if err != nil {
		return "", fmt.Errorf("ticket: count codes for %s: %w", prefix, err)
	}
	return fmt.Sprintf("%s-%04d", prefix, count+1), nil
}
