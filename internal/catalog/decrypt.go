package catalog

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"io"
)

// audioFileIVLength is the AES-CTR IV length for encrypted audio
// files; the IV fills a whole AES block, and the counter for block N
// is the IV plus N (see counterForBlock).
const audioFileIVLength = 16

// decryptingReadSeeker wraps an encrypted, seekable asset reader with
// an AES-CTR stream cipher keyed by a per-(track,file) decryption key.
//
// AES-CTR is a position-addressable stream cipher: decrypting byte
// offset N only requires seeking the keystream to block N/16, which is
// why every Read re-derives the stream from the current position (as
// set by Seek) instead of re-reading from the start.
type decryptingReadSeeker struct {
	src   io.ReadSeekCloser
	block cipher.Block
	iv    [audioFileIVLength]byte
	pos   int64
}

func newDecryptingReadSeeker(src io.ReadSeekCloser, key []byte, iv [audioFileIVLength]byte) (*decryptingReadSeeker, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("catalog: building AES cipher: %w", err)
	}
	return &decryptingReadSeeker{src: src, block: block, iv: iv}, nil
}

func (d *decryptingReadSeeker) Read(p []byte) (int, error) {
	n, err := d.src.Read(p)
	if n > 0 {
		blockIndex := d.pos / aes.BlockSize
		skip := int(d.pos % aes.BlockSize)
		stream := cipher.NewCTR(d.block, d.counterForBlock(blockIndex))
		if skip > 0 {
			discard := make([]byte, skip)
			stream.XORKeyStream(discard, discard)
		}
		stream.XORKeyStream(p[:n], p[:n])
		d.pos += int64(n)
	}
	return n, err
}

func (d *decryptingReadSeeker) Seek(offset int64, whence int) (int64, error) {
	pos, err := d.src.Seek(offset, whence)
	if err != nil {
		return 0, err
	}
	d.pos = pos
	return pos, nil
}

func (d *decryptingReadSeeker) Close() error { return d.src.Close() }

// counterForBlock derives the CTR counter for AES block index blockIndex:
// the IV's big-endian integer value plus blockIndex.
func (d *decryptingReadSeeker) counterForBlock(blockIndex int64) []byte {
	counter := make([]byte, audioFileIVLength)
	copy(counter, d.iv[:])
	carry := uint64(blockIndex)
	for i := len(counter) - 1; carry > 0 && i >= 0; i-- {
		sum := uint64(counter[i]) + carry
		counter[i] = byte(sum)
		carry = sum >> 8
	}
	return counter
}

// subfileReader wraps a decrypted reader, dropping a fixed-length
// header so logical byte 0 is the first byte of audio payload.
type subfileReader struct {
	src    io.ReadSeekCloser
	offset int64
}

// oggVorbisHeaderOffset is the fixed Ogg Vorbis container header
// length dropped from the logical start of every decrypted asset.
const oggVorbisHeaderOffset = 0xa7

func newSubfileReader(src io.ReadSeekCloser, offset int64) (*subfileReader, error) {
	if _, err := src.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("catalog: seeking past subfile header: %w", err)
	}
	return &subfileReader{src: src, offset: offset}, nil
}

func (s *subfileReader) Read(p []byte) (int, error) { return s.src.Read(p) }

func (s *subfileReader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = s.offset + offset
	case io.SeekCurrent:
		cur, err := s.src.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, err
		}
		abs = cur + offset
	case io.SeekEnd:
		pos, err := s.src.Seek(offset, io.SeekEnd)
		if err != nil {
			return 0, err
		}
		return pos - s.offset, nil
	default:
		return 0, fmt.Errorf("catalog: invalid whence %d", whence)
	}
	pos, err := s.src.Seek(abs, io.SeekStart)
	if err != nil {
		return 0, err
	}
	return pos - s.offset, nil
}

func (s *subfileReader) Close() error { return s.src.Close() }
