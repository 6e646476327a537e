package serenity

import "github.com/serenitystar/serenity-go/internal/dotenv"

// LoadEnvFile loads KEY=VALUE pairs from a dotenv-style file into the
// process environment before the client reads it via FromEnv. A missing file
// is not an error; existing environment variables win.
func LoadEnvFile(path string) error {
	return dotenv.LoadFile(path)
}
