package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"
)

func TestFileAppender(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "hsa.log")
	appender := NewFileAppender(filename)

	logger := NewBlankLogger("replay")
	logger.AddAppender(appender)
	logger.Infow("latched base frame", "base_id", 3)
	logger.Sublogger("worldtobase").Debug("dropping frame")
	test.That(t, logger.Sync(), test.ShouldBeNil)
	test.That(t, appender.Close(), test.ShouldBeNil)

	contents, err := os.ReadFile(filename)
	test.That(t, err, test.ShouldBeNil)
	lines := strings.Split(strings.TrimSpace(string(contents)), "\n")
	test.That(t, lines, test.ShouldHaveLength, 2)

	var entry map[string]interface{}
	test.That(t, json.Unmarshal([]byte(lines[0]), &entry), test.ShouldBeNil)
	test.That(t, entry["level"], test.ShouldEqual, "INFO")
	test.That(t, entry["logger"], test.ShouldEqual, "replay")
	test.That(t, entry["msg"], test.ShouldEqual, "latched base frame")
	test.That(t, entry["base_id"], test.ShouldEqual, 3)

	test.That(t, json.Unmarshal([]byte(lines[1]), &entry), test.ShouldBeNil)
	test.That(t, entry["logger"], test.ShouldEqual, "replay.worldtobase")
}
