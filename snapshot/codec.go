package snapshot

import (
	"bufio"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/zintix-labs/weightlab/errs"
)

// MaxFrameBytes 是解碼不受信任輸入時的預設上限（含解壓後大小）。
const MaxFrameBytes = 64 << 20

func EncodeBase64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func DecodeBase64URL(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, errs.WrapWithExtra(ErrCorrupt, "decode base64url failed", err.Error())
	}
	return b, nil
}

// EncodeBlobFrame 將 payload 包成長度前綴的二進位 frame：
//
//	frame := uvarint(len(payload)) || payload
//
// frame 不是 JSON-friendly 的格式，走文字傳輸時請再套 Base64URL。
func EncodeBlobFrame(payload []byte) []byte {
	var hdr [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(hdr[:], uint64(len(payload)))

	out := make([]byte, 0, n+len(payload))
	out = append(out, hdr[:n]...)
	return append(out, payload...)
}

// DecodeBlobFrame 解開 EncodeBlobFrame 產生的 frame；長度不符或截斷時回傳 ErrCorrupt。
func DecodeBlobFrame(frame []byte) ([]byte, error) {
	n, size := binary.Uvarint(frame)
	if size <= 0 {
		return nil, errs.WrapWithExtra(ErrCorrupt, "decode blob frame failed", "invalid varint length")
	}
	if uint64(len(frame)-size) < n {
		return nil, errs.WrapWithExtra(ErrCorrupt, "decode blob frame failed", "truncated payload")
	}
	// 回傳複本，避免持有整個 frame 的底層陣列
	out := make([]byte, n)
	copy(out, frame[size:size+int(n)])
	return out, nil
}

// WriteBlobFrame 將 frame 寫入 w，用於寫檔或串流。
func WriteBlobFrame(w io.Writer, payload []byte) error {
	var hdr [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(hdr[:], uint64(len(payload)))
	if _, err := w.Write(hdr[:n]); err != nil {
		return errs.Wrap(err, "write blob frame header failed")
	}
	if _, err := w.Write(payload); err != nil {
		return errs.Wrap(err, "write blob frame payload failed")
	}
	return nil
}

// ReadBlobFrame 從 r 讀出一個 frame。maxBytes 為 0 時不設上限（只用於受信任的本機檔案）。
// 截斷的輸入回傳 ErrCorrupt。
func ReadBlobFrame(r io.Reader, maxBytes uint64) ([]byte, error) {
	br := bufio.NewReader(r)
	ln, err := binary.ReadUvarint(br)
	if err != nil {
		return nil, frameReadErr("read blob frame header failed", err)
	}
	if maxBytes > 0 && ln > maxBytes {
		return nil, errs.WrapWithExtra(ErrTooLarge, "read blob frame failed", "payload exceeds maxBytes")
	}
	buf := make([]byte, ln)
	if _, err := io.ReadFull(br, buf); err != nil {
		return nil, frameReadErr("read blob frame payload failed", err)
	}
	return buf, nil
}

func frameReadErr(msg string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, binary.ErrOverflow) {
		return errs.WrapWithExtra(ErrCorrupt, msg, err.Error())
	}
	return errs.Wrap(err, msg)
}

// EncodeAll/DecodeAll 在 zstd 中是 goroutine-safe 的，共用一組即可
var (
	zenc     *zstd.Encoder
	zdec     *zstd.Decoder
	zstdOnce sync.Once
	zstdErr  error
)

func zstdCodec() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zenc, zstdErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if zstdErr != nil {
			return
		}
		zdec, zstdErr = zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(0),
			zstd.WithDecoderMaxMemory(MaxFrameBytes),
		)
	})
	return zenc, zdec, zstdErr
}

func EncodeZstd(b []byte) ([]byte, error) {
	enc, _, err := zstdCodec()
	if err != nil {
		return nil, errs.Wrap(err, "zstd init failed")
	}
	return enc.EncodeAll(b, make([]byte, 0, len(b)/2)), nil
}

func DecodeZstd(b []byte) ([]byte, error) {
	_, dec, err := zstdCodec()
	if err != nil {
		return nil, errs.Wrap(err, "zstd init failed")
	}
	out, err := dec.DecodeAll(b, nil)
	if err != nil {
		return nil, errs.WrapWithExtra(ErrCorrupt, "zstd decode failed", err.Error())
	}
	return out, nil
}
