package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	hashed, err := Hash("s3cret-pass")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hashed, "$argon2id$v=19$m=65536,t=1,p=4$"))

	assert.True(t, Verify("s3cret-pass", hashed))
	assert.False(t, Verify("s3cret-pasS", hashed))

	other, err := Hash("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, hashed, other, "salt must differ per hash")
}

func TestCheckFlagsWeakParams(t *testing.T) {
	weak := Default
	weak.Memory = 16 * 1024
	hashed, err := HashWith("s3cret-pass", weak)
	require.NoError(t, err)

	ok, rehash := Check("s3cret-pass", hashed)
	assert.True(t, ok)
	assert.True(t, rehash)

	ok, rehash = Check("wrong", hashed)
	assert.False(t, ok)
	assert.False(t, rehash)

	current, err := Hash("s3cret-pass")
	require.NoError(t, err)
	ok, rehash = Check("s3cret-pass", current)
	assert.True(t, ok)
	assert.False(t, rehash)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	for _, stored := range []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$a2V5",
		"$argon2id$v=18$m=65536,t=1,p=4$c2FsdA$a2V5",
		"$argon2id$v=19$m=0,t=1,p=4$c2FsdA$a2V5",
		"$argon2id$v=19$m=65536,t=1,p=4$!!$a2V5",
		"$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$",
	} {
		assert.False(t, Verify("anything", stored), stored)
	}
}
