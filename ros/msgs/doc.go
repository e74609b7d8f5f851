// Package msgs defines the messages exchanged by the hsa nodes together with their .msg
// definitions. Every message encodes to and decodes from ROS 2 CDR, so payloads are
// interchangeable with the ROS 2 nodes of the robot.
package msgs
