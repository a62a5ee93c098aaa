package core

import (
	"encoding/hex"
	"fmt"

	"beatmapvault/pkg/types"

	"github.com/fxamacker/cbor/v2"
)

// Link 是 Manifest 中对文件内容的哈希引用
// CBOR 层面序列化为 Tag 42 (0x00 + 32 字节 SHA-256)，比 64 字符 hex 省一半空间
type Link struct {
	Hash types.Hash
}

const linkTagNumber = 42

func NewLink(hash types.Hash) Link {
	return Link{Hash: hash}
}

// MarshalCBOR 规范：Tag 42, Content = [0x00, byte1, byte2...]
func (l Link) MarshalCBOR() ([]byte, error) {
	raw, err := hex.DecodeString(string(l.Hash))
	if err != nil {
		return nil, fmt.Errorf("invalid hash format in link: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("invalid hash length in link: %d bytes", len(raw))
	}

	return em.Marshal(cbor.Tag{
		Number:  linkTagNumber,
		Content: append([]byte{0x00}, raw...),
	})
}

func (l *Link) UnmarshalCBOR(data []byte) error {
	var tag cbor.Tag
	if err := dm.Unmarshal(data, &tag); err != nil {
		return err
	}

	if tag.Number != linkTagNumber {
		return fmt.Errorf("expected tag 42 for Link, got %d", tag.Number)
	}

	raw, ok := tag.Content.([]byte)
	if !ok {
		return fmt.Errorf("link content must be byte string")
	}
	if len(raw) != 33 || raw[0] != 0x00 {
		return fmt.Errorf("invalid link: missing 0x00 prefix or wrong length")
	}

	l.Hash = types.Hash(hex.EncodeToString(raw[1:]))
	return nil
}
