package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Class Sizes", CleanString("  Class Sizes \n"))
	assert.Equal(t, "class sizes", CleanString("  Class Sizes \n", true /* lower */))
	assert.Equal(t, "", CleanString("   "))
}

func TestGetwd(t *testing.T) {
	wd := Getwd()
	_, err := os.Stat(filepath.Join(wd, "go.mod"))
	assert.NoError(t, err, "the module root is found from a package dir")
}
