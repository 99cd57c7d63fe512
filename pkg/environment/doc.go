// Package environment names the deployment environment of a process.
//
// Parse accepts the long and short spellings ("production", "prod"), and
// Environment implements encoding.TextUnmarshaler so config loaders can
// decode APP_ENV directly:
//
//	type App struct {
//		Env environment.Environment `env:"APP_ENV" envDefault:"development"`
//	}
package environment
