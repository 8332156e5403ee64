package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashVerify_RoundTrip(t *testing.T) {
	hash, salt, err := Hash("Abc12345!")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEmpty(t, salt)

	assert.True(t, Verify("Abc12345!", hash, salt))
}

func TestVerify_SingleCharacterMutations(t *testing.T) {
	const pw = "Abc12345!"
	hash, salt, err := Hash(pw)
	require.NoError(t, err)

	for i := 0; i < len(pw); i++ {
		mutated := []byte(pw)
		mutated[i] ^= 0x01
		assert.False(t, Verify(string(mutated), hash, salt), "mutation at index %d must not verify", i)
	}
}

func TestVerify_WrongSaltOrGarbage(t *testing.T) {
	hash, _, err := Hash("Abc12345!")
	require.NoError(t, err)

	_, otherSalt, err := Hash("Abc12345!")
	require.NoError(t, err)

	assert.False(t, Verify("Abc12345!", hash, otherSalt))
	assert.False(t, Verify("Abc12345!", hash, "not-base64!!"))
	assert.False(t, Verify("Abc12345!", "not-base64!!", otherSalt))
}

func TestHash_SaltIsUniquePerCall(t *testing.T) {
	hash1, salt1, err := Hash("Abc12345!")
	require.NoError(t, err)
	hash2, salt2, err := Hash("Abc12345!")
	require.NoError(t, err)

	assert.NotEqual(t, salt1, salt2)
	assert.NotEqual(t, hash1, hash2)
}

func TestValidate_Policy(t *testing.T) {
	cases := []struct {
		name     string
		password string
		ok       bool
	}{
		{"valid", "Abc12345!", true},
		{"too short", "Ab1!", false},
		{"no uppercase", "abc12345!", false},
		{"no lowercase", "ABC12345!", false},
		{"no digit", "Abcdefgh!", false},
		{"no symbol", "Abc123456", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.password)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrWeakPassword)
			}
		})
	}
}
