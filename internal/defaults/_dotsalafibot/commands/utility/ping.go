package utility

import (
	"context"
	"fmt"
	"time"
)

var Data = map[string]any{
	"name":        "ping",
	"description": "Replies with Pong!",
}

func Execute(ctx context.Context, inv map[string]string) (string, error) {
	return fmt.Sprintf("Pong! (%s)", time.Now().UTC().Format(time.Kitchen)), nil
}
