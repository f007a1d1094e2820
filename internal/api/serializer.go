package api

import (
	"encoding/json"

	"github.com/labstack/echo/v4"
)

// jsonSerializer writes responses without HTML escaping so payload text
// reaches clients exactly as the canonical codec produced it.
type jsonSerializer struct {
	echo.DefaultJSONSerializer
}

func (jsonSerializer) Serialize(c echo.Context, i any, indent string) error {
	enc := json.NewEncoder(c.Response())
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}
