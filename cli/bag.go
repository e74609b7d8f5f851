package cli

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/edaniels/gobag/rosbag"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"github.com/mstoelzle/ros2-hsa/ros"
)

// exportTopicsJSON writes the parsed topics of rb as one JSON lines file per topic into dir and
// returns the written paths.
func exportTopicsJSON(rb *rosbag.RosBag, dir string, start, end int64, topics []string) ([]string, error) {
	if err := ros.WriteTopicsJSON(rb, start, end, topics); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}

	keys := lo.Keys(rb.TopicsAsJSON)
	sort.Strings(keys)
	paths := make([]string, 0, len(keys))
	for _, key := range keys {
		path := filepath.Join(dir, key+".json")
		if err := os.WriteFile(path, rb.TopicsAsJSON[key].Bytes(), 0o640); err != nil {
			return nil, errors.Wrapf(err, "failed to export topic %q", key)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// BagExportAction is the corresponding action for 'bag-export'.
func BagExportAction(c *cli.Context) error {
	rb, err := ros.ReadBag(c.Path(replayFlagBag))
	if err != nil {
		return err
	}
	paths, err := exportTopicsJSON(rb, c.Path(bagFlagDestination),
		c.Int64(bagFlagStart), c.Int64(bagFlagEnd), c.StringSlice(bagFlagTopics))
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.New("no messages matched the filters")
	}
	for _, path := range paths {
		printf(c.App.Writer, "wrote %s", path)
	}
	return nil
}
