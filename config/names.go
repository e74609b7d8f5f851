package config

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var topicTokenRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateTopicName checks a topic name against the ROS 2 naming rules: tokens of letters, digits
// and underscores not starting with a digit, separated by single slashes, optionally absolute
// ("/") or private ("~/").
func ValidateTopicName(name string) error {
	if name == "" {
		return errors.New("topic name must not be empty")
	}
	rest := name
	switch {
	case strings.HasPrefix(rest, "~/"):
		rest = rest[2:]
	case rest == "~":
		return nil
	case strings.HasPrefix(rest, "/"):
		rest = rest[1:]
	}
	if rest == "" {
		return errors.Errorf("topic name %q has no tokens", name)
	}
	if strings.HasSuffix(rest, "/") {
		return errors.Errorf("topic name %q must not end with a slash", name)
	}
	for _, token := range strings.Split(rest, "/") {
		if token == "" {
			return errors.Errorf("topic name %q must not contain repeated slashes", name)
		}
		if !topicTokenRegexp.MatchString(token) {
			return errors.Errorf("topic name %q has invalid token %q", name, token)
		}
	}
	return nil
}
