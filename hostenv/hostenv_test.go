package hostenv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMountSources(t *testing.T) {
	table := []byte(`/dev/nvme0n1p2 / ext4 rw,relatime 0 0
proc /proc proc rw,nosuid,nodev,noexec 0 0
/dev/nvme0n1p1 /boot vfat rw,relatime 0 0

`)
	assert.Equal(t,
		[]string{"/dev/nvme0n1p2", "proc", "/dev/nvme0n1p1"},
		parseMountSources(table))

	assert.Empty(t, parseMountSources(nil))
}
