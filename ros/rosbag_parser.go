// Package ros bridges recorded and live ROS data into the HSA nodes: it reads ROS 1 bags, and carries
// CDR encoded messages between nodes on an in-process bus.
package ros

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/edaniels/gobag/rosbag"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/mstoelzle/ros2-hsa/ros/msgs"
)

// ReadBag reads the contents of a rosbag into a gobag data structure.
func ReadBag(filename string) (rb *rosbag.RosBag, err error) {
	//nolint:gosec
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open input file")
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	rb = rosbag.NewRosBag()
	if err := rb.Read(f); err != nil {
		return nil, errors.Wrapf(err, "unable to create ros bag")
	}
	return rb, nil
}

// WriteTopicsJSON parses the messages of a rosbag into JSON lines, filtered by time and topic.
// The parsed lines are kept in rb.TopicsAsJSON keyed by BagTopicKey.
func WriteTopicsJSON(rb *rosbag.RosBag, startTime, endTime int64, topicsFilter []string) error {
	var timeFilterFunc func(int64) bool
	if startTime == 0 || endTime == 0 {
		timeFilterFunc = func(timestamp int64) bool {
			return true
		}
	} else {
		timeFilterFunc = func(timestamp int64) bool {
			return timestamp >= startTime && timestamp <= endTime
		}
	}

	var topicFilterFunc func(string) bool
	if len(topicsFilter) == 0 {
		topicFilterFunc = func(string) bool {
			return true
		}
	} else {
		topicsFilterMap := make(map[string]bool)
		for _, topic := range topicsFilter {
			topicsFilterMap[topic] = true
			topicsFilterMap["/"+strings.TrimPrefix(topic, "/")] = true
		}
		topicFilterFunc = func(topic string) bool {
			_, ok := topicsFilterMap[topic]
			return ok
		}
	}

	if err := rb.ParseTopicsToJSON("", timeFilterFunc, topicFilterFunc, false); err != nil {
		return errors.Wrapf(err, "error while parsing bag to JSON")
	}

	return nil
}

// BagTopicKey returns the key gobag files the messages of topic under: the topic without its leading
// slash, lower cased, with the remaining slashes replaced by underscores.
func BagTopicKey(topic string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(topic, "/"), "/", "_"))
}

// AllMessagesForTopic returns all messages for a specific topic in the ros bag.
func AllMessagesForTopic(rb *rosbag.RosBag, topic string) ([]map[string]interface{}, error) {
	msgs, err := topicJSON(rb, topic)
	if err != nil {
		return nil, err
	}
	return decodeJSONLines(msgs)
}

// RigidBodyArraysFromBag returns the motion capture frames recorded on topic, in bag order.
func RigidBodyArraysFromBag(rb *rosbag.RosBag, topic string) ([]*msgs.RigidBodyArray, error) {
	data, err := topicJSON(rb, topic)
	if err != nil {
		return nil, err
	}
	return rigidBodyArraysFromJSON(data)
}

func topicJSON(rb *rosbag.RosBag, topic string) (*bytes.Buffer, error) {
	if err := WriteTopicsJSON(rb, 0, 0, []string{topic}); err != nil {
		return nil, err
	}
	msgs := rb.TopicsAsJSON[BagTopicKey(topic)]
	if msgs == nil {
		return nil, errors.Errorf("no messages for topic %s", topic)
	}
	return msgs, nil
}

func decodeJSONLines(r io.Reader) ([]map[string]interface{}, error) {
	all := []map[string]interface{}{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		message := map[string]interface{}{}
		if err := json.Unmarshal(data, &message); err != nil {
			return nil, errors.Wrapf(err, "invalid bag message %d", len(all)+1)
		}
		all = append(all, message)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return all, nil
}

func rigidBodyArraysFromJSON(r io.Reader) ([]*msgs.RigidBodyArray, error) {
	raw, err := decodeJSONLines(r)
	if err != nil {
		return nil, err
	}
	out := make([]*msgs.RigidBodyArray, 0, len(raw))
	for i, m := range raw {
		var bm RigidBodyArrayMessage
		if err := decodeBagMessage(m, &bm); err != nil {
			return nil, errors.Wrapf(err, "invalid rigid body array %d", i+1)
		}
		out = append(out, bm.ToMsg())
	}
	return out, nil
}

func decodeBagMessage(from map[string]interface{}, to interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  to,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(from)
}
