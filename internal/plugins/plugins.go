// Package plugins collects the builtin plugin factories.
package plugins

import (
	"github.com/voxbot-dev/voxbot/internal/plugin"
	"github.com/voxbot-dev/voxbot/internal/plugins/admin"
	"github.com/voxbot-dev/voxbot/internal/plugins/ai"
	"github.com/voxbot-dev/voxbot/internal/plugins/echo"
	"github.com/voxbot-dev/voxbot/internal/plugins/guess"
	"github.com/voxbot-dev/voxbot/internal/plugins/help"
	"github.com/voxbot-dev/voxbot/internal/plugins/ping"
)

// Builtin returns the builtin factories in their declaration order,
// which is also the default load order.
func Builtin() []plugin.Factory {
	return []plugin.Factory{
		ping.Factory(),
		echo.Factory(),
		help.Factory(),
		admin.Factory(),
		guess.Factory(),
		ai.Factory(),
	}
}
