// Package autoload initializes the global logger from the environment.
// Blank-import it from main before any other package logs.
package autoload

import (
	configx "github.com/primeauto/concierge/pkg/config"
	logx "github.com/primeauto/concierge/pkg/logger"
)

func init() {
	cfg, err := configx.New[logx.Config]("LOG")
	if err != nil {
		logx.Init()
		return
	}
	logx.Init(*cfg)
}
