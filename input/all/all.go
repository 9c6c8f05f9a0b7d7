// Package all imports all backends implemented by the input package.
package all

import (
	_ "github.com/standby-cli/standby/input/ffmpeg"
	_ "github.com/standby-cli/standby/input/malgo"
	_ "github.com/standby-cli/standby/input/parec"
)
