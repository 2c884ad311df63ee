package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const tomlConfig = `
site = "123456"
domain = "example.com"
log = "logx"
log_ssl = "logsx"
secure = false
max_hit_size = 4000
splittable_keys = ["ati", "stc"]
offline_mode = "always"
`

const yamlConfig = `
site: "654321"
max_hit_size: 2000
protocol_keys: [vtag, ptag]
offline_mode: never
`

const jsonConfig = `{"site": "777", "pixel_path": "/collect", "secure": true}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func clearEnv(t *testing.T) {
	t.Helper()

	for _, name := range []string{"ATI_SITE", "ATI_DOMAIN", "ATI_LOG", "ATI_LOG_SSL", "ATI_MAX_HIT_SIZE", "ATI_SECURE", "ATI_OFFLINE_MODE"} {
		t.Setenv(name, "")
	}
}
