package messages

import (
	"github.com/krishnaIndia/routing/internal/codec"
	"github.com/krishnaIndia/routing/internal/types"
)

// PutPublicPmid announces a node's public identity to its peers.
type PutPublicPmid struct {
	PublicPmid types.PublicPmid
}

func (PutPublicPmid) Tag() codec.Tag { return TagPutPublicPmid }

func (m PutPublicPmid) payload() any { return m.PublicPmid }

func (m PutPublicPmid) Equal(o PutPublicPmid) bool { return m.PublicPmid.Equal(o.PublicPmid) }

// DecodePutPublicPmid fails with codec.ErrUnexpectedTag if b carries another kind.
func DecodePutPublicPmid(b []byte) (PutPublicPmid, error) {
	pub, err := codec.DecodeTagged[types.PublicPmid](b, TagPutPublicPmid)
	if err != nil {
		return PutPublicPmid{}, err
	}
	return PutPublicPmid{PublicPmid: pub}, nil
}
