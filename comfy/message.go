package comfy

import (
	"encoding/binary"
	"encoding/json"
)

const (
	eventPreviewImage = 1
	formatPNG         = 2
)

type message struct {
	Type string      `json:"type"`
	Data messageData `json:"data"`
}

type messageData struct {
	PromptID string `json:"prompt_id"`
	Node     string `json:"node"`
	Status   struct {
		ExecInfo struct {
			QueueRemaining *int `json:"queue_remaining"`
		} `json:"exec_info"`
	} `json:"status"`
	ExceptionMessage string `json:"exception_message"`
}

func parseMessage(b []byte) (message, error) {
	var msg message
	err := json.Unmarshal(b, &msg)
	return msg, err
}

// parsePreview extracts the PNG bytes from a binary preview message. ok is
// false for any other kind of binary message.
func parsePreview(b []byte) (image []byte, ok bool) {
	if len(b) < 8 {
		return nil, false
	}
	event := binary.BigEndian.Uint32(b[0:4])
	format := binary.BigEndian.Uint32(b[4:8])
	if event != eventPreviewImage || format != formatPNG {
		return nil, false
	}
	image = make([]byte, len(b)-8)
	copy(image, b[8:])
	return image, true
}

// EncodePreview builds a binary preview message the way the ComfyUI
// "Send Image (WebSocket)" node does.
func EncodePreview(png []byte) []byte {
	b := make([]byte, 8, 8+len(png))
	binary.BigEndian.PutUint32(b[0:4], eventPreviewImage)
	binary.BigEndian.PutUint32(b[4:8], formatPNG)
	return append(b, png...)
}
