package util

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// SendJSON marshals data and writes it as a single WebSocket text message.
func SendJSON(conn *websocket.Conn, data interface{}) error {
	msg, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}
	log.Debugf("-> Sending: %s", string(msg))
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return fmt.Errorf("error writing message: %w", err)
	}
	return nil
}

// LoadConfigInto unmarshals a YAML file over an existing value, so fields
// absent from the file keep whatever defaults the caller set.
func LoadConfigInto[T any](filepath string, config *T) error {
	// 1. Read the file
	data, err := os.ReadFile(filepath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	// 2. Unmarshal the YAML data into the struct
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	return nil
}
