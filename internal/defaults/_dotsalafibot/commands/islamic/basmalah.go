package islamic

import (
	"context"
	"fmt"
	"strings"
)

var Data = map[string]any{
	"name":        "basmalah",
	"description": "Sends the Basmalah text",
	"options": []any{
		map[string]any{"type": 3, "name": "title", "description": "Custom title"},
		map[string]any{"type": 3, "name": "description", "description": "Custom description"},
		map[string]any{"type": 3, "name": "font", "description": "Font style: default, bold, italic, monospace"},
	},
}

func Execute(ctx context.Context, inv map[string]string) (string, error) {
	title := inv["title"]
	if title == "" {
		title = "Bismillahir Rahmanir Raheem (بِسْمِ اللَّهِ الرَّحْمَنِ الرَّحِيم)"
	}
	description := inv["description"]
	if description == "" {
		description = "In the Name of Allâh, the Most Gracious, the Most Merciful"
	}
	switch strings.ToLower(inv["font"]) {
	case "bold":
		description = "**" + description + "**"
	case "italic":
		description = "*" + description + "*"
	case "monospace":
		description = "`" + description + "`"
	}
	return fmt.Sprintf("%s\n%s", title, description), nil
}
