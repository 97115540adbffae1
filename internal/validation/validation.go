package validation

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var shareCodeRe = regexp.MustCompile(`^[A-Z0-9]{1,16}$`)

func NormalizeShareCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func ValidateShareCodePrefix(prefix string) bool {
	return shareCodeRe.MatchString(NormalizeShareCode(prefix))
}

func ValidateSquadName(name string) bool {
	name = strings.TrimSpace(name)
	return len(name) >= 2 && len(name) <= 100
}

func MaxMessageLength() int {
	maxStr := os.Getenv("MAX_MESSAGE_LENGTH")
	if maxStr == "" {
		return 4000
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil || max < 1 {
		return 4000
	}
	return max
}

func TrimAndLimit(s string, max int) string {
	s = strings.TrimSpace(s)
	if max > 0 && len(s) > max {
		return s[:max]
	}
	return s
}

// ValidatePomodoroDuration bounds the shared timer to sane lengths.
func ValidatePomodoroDuration(d time.Duration) bool {
	return d >= time.Minute && d <= 4*time.Hour
}

// ValidateScore bounds exam scores to the 0-100 scale.
func ValidateScore(score int) bool {
	return score >= 0 && score <= 100
}
