package memo_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xbasekit/xbase/internal/memo"
)

func newDbt(t *testing.T) *memo.DbtStore {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.dbt")
	s, err := memo.OpenDbt(path, true, false)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newFpt(t *testing.T, blockSize int) *memo.FptStore {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.fpt")
	s, err := memo.OpenFpt(path, true, false, blockSize)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDbtRoundTrip(t *testing.T) {
	s := newDbt(t)

	t.Run("short payload", func(t *testing.T) {
		block, err := s.PutMemo([]byte("hello memo"))
		require.NoError(t, err)
		require.Equal(t, 1, block)

		got, err := s.GetMemo(block)
		require.NoError(t, err)
		require.Equal(t, []byte("hello memo"), got)
	})

	t.Run("payload spanning blocks", func(t *testing.T) {
		big := bytes.Repeat([]byte("x"), 1000)
		block, err := s.PutMemo(big)
		require.NoError(t, err)

		got, err := s.GetMemo(block)
		require.NoError(t, err)
		require.Equal(t, big, got)
	})

	t.Run("payload containing a lone 0x1A", func(t *testing.T) {
		data := []byte("before\x1aafter")
		block, err := s.PutMemo(data)
		require.NoError(t, err)

		got, err := s.GetMemo(block)
		require.NoError(t, err)
		require.Equal(t, data, got)
	})
}

func TestDbtBlockAllocation(t *testing.T) {
	s := newDbt(t)

	// 510 payload bytes + 2 sentinel bytes fill exactly one block.
	b1, err := s.PutMemo(bytes.Repeat([]byte("a"), 510))
	require.NoError(t, err)
	require.Equal(t, 1, b1)

	// 511 + 2 spills into a second block.
	b2, err := s.PutMemo(bytes.Repeat([]byte("b"), 511))
	require.NoError(t, err)
	require.Equal(t, 2, b2)

	b3, err := s.PutMemo([]byte("c"))
	require.NoError(t, err)
	require.Equal(t, 4, b3)
}

func TestDbtPersistsNextFree(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.dbt")

	s, err := memo.OpenDbt(path, true, false)
	require.NoError(t, err)
	block, err := s.PutMemo([]byte("first"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := memo.OpenDbt(path, false, false)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetMemo(block)
	require.NoError(t, err)
	require.Equal(t, []byte("first"), got)

	next, err := reopened.PutMemo([]byte("second"))
	require.NoError(t, err)
	require.Greater(t, next, block)
}

func TestDbtZap(t *testing.T) {
	s := newDbt(t)

	block, err := s.PutMemo([]byte("doomed"))
	require.NoError(t, err)
	require.NoError(t, s.Zap())

	_, err = s.GetMemo(block)
	require.Error(t, err)

	again, err := s.PutMemo([]byte("fresh"))
	require.NoError(t, err)
	require.Equal(t, 1, again)
}

func TestDbtMissingSentinel(t *testing.T) {
	s := newDbt(t)
	_, err := s.GetMemo(7)
	require.ErrorIs(t, err, memo.ErrCorrupt)
}

func TestFptRoundTrip(t *testing.T) {
	s := newFpt(t, 64)

	t.Run("exact length", func(t *testing.T) {
		data := []byte("fox pro memo payload")
		block, err := s.PutMemo(data)
		require.NoError(t, err)

		got, err := s.GetMemo(block)
		require.NoError(t, err)
		require.Equal(t, data, got)
	})

	t.Run("empty payload", func(t *testing.T) {
		block, err := s.PutMemo(nil)
		require.NoError(t, err)

		got, err := s.GetMemo(block)
		require.NoError(t, err)
		require.Empty(t, got)
	})

	t.Run("binary payload", func(t *testing.T) {
		data := []byte{0x00, 0x1A, 0x1A, 0xFF, 0x00}
		block, err := s.PutMemo(data)
		require.NoError(t, err)

		got, err := s.GetMemo(block)
		require.NoError(t, err)
		require.Equal(t, data, got)
	})
}

func TestFptBlockAllocation(t *testing.T) {
	s := newFpt(t, 64)

	// The 512-byte header occupies the first eight 64-byte blocks.
	b1, err := s.PutMemo(bytes.Repeat([]byte("a"), 56))
	require.NoError(t, err)
	require.Equal(t, 8, b1)

	// 57 payload + 8 sub-header bytes spill into a second block.
	b2, err := s.PutMemo(bytes.Repeat([]byte("b"), 57))
	require.NoError(t, err)
	require.Equal(t, 9, b2)

	b3, err := s.PutMemo([]byte("c"))
	require.NoError(t, err)
	require.Equal(t, 11, b3)
}

func TestFptReopenKeepsBlockSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.fpt")

	s, err := memo.OpenFpt(path, true, false, 128)
	require.NoError(t, err)
	block, err := s.PutMemo([]byte("sticky"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// The stored block size wins over the one passed at open time.
	reopened, err := memo.OpenFpt(path, false, false, 64)
	require.NoError(t, err)
	defer reopened.Close()
	require.Equal(t, 128, reopened.BlockSize())

	got, err := reopened.GetMemo(block)
	require.NoError(t, err)
	require.Equal(t, []byte("sticky"), got)
}

func TestFptTruncatedEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.fpt")

	s, err := memo.OpenFpt(path, true, false, 64)
	require.NoError(t, err)
	block, err := s.PutMemo(bytes.Repeat([]byte("z"), 100))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	st, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, st.Size()-50))

	reopened, err := memo.OpenFpt(path, false, false, 0)
	require.NoError(t, err)
	defer reopened.Close()

	_, err = reopened.GetMemo(block)
	require.ErrorIs(t, err, memo.ErrCorrupt)
}

// corruptReads hands back flipped bytes for any read past the header,
// standing in for media that loses fresh writes.
type corruptReads struct {
	memo.File
}

func (c corruptReads) ReadAt(p []byte, off int64) (int, error) {
	n, err := c.File.ReadAt(p, off)
	if off >= 512 && n > 0 {
		p[0] ^= 0xFF
	}
	return n, err
}

func TestDbtWriteVerification(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.dbt")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)

	s, err := memo.NewDbt(corruptReads{f})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.PutMemo([]byte("never trusted"))
	require.ErrorIs(t, err, memo.ErrVerify)
}

func TestFptWriteVerification(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.fpt")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)

	s, err := memo.NewFpt(corruptReads{f}, 64)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.PutMemo([]byte("never trusted"))
	require.ErrorIs(t, err, memo.ErrVerify)
}

func TestDbtReadOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.dbt")

	// read-only never creates a missing sidecar
	_, err := memo.OpenDbt(path, true, true)
	require.ErrorIs(t, err, os.ErrNotExist)

	s, err := memo.OpenDbt(path, true, false)
	require.NoError(t, err)
	block, err := s.PutMemo([]byte("stable"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	ro, err := memo.OpenDbt(path, false, true)
	require.NoError(t, err)
	defer ro.Close()

	got, err := ro.GetMemo(block)
	require.NoError(t, err)
	require.Equal(t, []byte("stable"), got)

	_, err = ro.PutMemo([]byte("nope"))
	require.Error(t, err)
}

func TestFptStoredUnitBlockSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.fpt")

	s, err := memo.OpenFpt(path, true, false, 64)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// some writers store the block size as a count of 512-byte units
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[6], raw[7] = 0, 8
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	reopened, err := memo.OpenFpt(path, false, false, 0)
	require.NoError(t, err)
	defer reopened.Close()
	require.Equal(t, 8*512, reopened.BlockSize())
}

func TestDiscardStore(t *testing.T) {
	var s memo.Discard

	block, err := s.PutMemo([]byte("ignored"))
	require.NoError(t, err)
	require.Zero(t, block)

	got, err := s.GetMemo(1)
	require.NoError(t, err)
	require.Empty(t, got)
}
