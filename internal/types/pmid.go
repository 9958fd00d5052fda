package types

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/box"

	"github.com/krishnaIndia/routing/internal/name"
	"github.com/krishnaIndia/routing/internal/relocation"
)

// BoxKeySize is the width of the Curve25519 encryption keys.
const BoxKeySize = 32

var (
	ErrBadKey             = errors.New("types: bad key")
	ErrBadValidationToken = errors.New("types: bad validation token")
)

// Pmid is a node's private identity. It never leaves the node; peers see
// the PublicPmid.
type Pmid struct {
	PublicKey       []byte             `codec:"public_key"`
	SecretKey       []byte             `codec:"secret_key"`
	PublicSignKey   ed25519.PublicKey  `codec:"public_sign_key"`
	SecretSignKey   ed25519.PrivateKey `codec:"secret_sign_key"`
	ValidationToken []byte             `codec:"validation_token"`
	Name            name.NameType      `codec:"name"`
}

// PublicPmid binds a node's public keys to its name.
type PublicPmid struct {
	PublicKey       []byte            `codec:"public_key"`
	PublicSignKey   ed25519.PublicKey `codec:"public_sign_key"`
	ValidationToken []byte            `codec:"validation_token"`
	Name            name.NameType     `codec:"name"`
}

// NewPmid generates fresh keys. The name starts as the client name derived
// from the signing key; it becomes the network name once relocated.
func NewPmid() (*Pmid, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	signPub, signPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}

	return &Pmid{
		PublicKey:       pub[:],
		SecretKey:       priv[:],
		PublicSignKey:   signPub,
		SecretSignKey:   signPriv,
		ValidationToken: ed25519.Sign(signPriv, validationPayload(pub[:], signPub)),
		Name:            name.FromPublicSignKey(signPub),
	}, nil
}

func (p *Pmid) Public() PublicPmid {
	return PublicPmid{
		PublicKey:       bytes.Clone(p.PublicKey),
		PublicSignKey:   bytes.Clone(p.PublicSignKey),
		ValidationToken: bytes.Clone(p.ValidationToken),
		Name:            p.Name,
	}
}

// Relocate moves the identity to the name derived from its current name
// and the close nodes in refs.
func (p *Pmid) Relocate(refs []name.NameType) error {
	n, err := relocation.Relocate(p.Name, refs)
	if err != nil {
		return err
	}
	p.Name = n
	return nil
}

func (p *Pmid) Validate() error {
	if len(p.SecretKey) != BoxKeySize {
		return fmt.Errorf("%w: secret key is %d bytes", ErrBadKey, len(p.SecretKey))
	}
	if len(p.SecretSignKey) != ed25519.PrivateKeySize {
		return fmt.Errorf("%w: secret sign key is %d bytes", ErrBadKey, len(p.SecretSignKey))
	}
	pub := p.Public()
	return pub.Validate()
}

// Validate checks key widths and that the validation token was made by the
// signing key over both public keys.
func (pp PublicPmid) Validate() error {
	if len(pp.PublicKey) != BoxKeySize {
		return fmt.Errorf("%w: public key is %d bytes", ErrBadKey, len(pp.PublicKey))
	}
	if len(pp.PublicSignKey) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: public sign key is %d bytes", ErrBadKey, len(pp.PublicSignKey))
	}
	if !ed25519.Verify(pp.PublicSignKey, validationPayload(pp.PublicKey, pp.PublicSignKey), pp.ValidationToken) {
		return ErrBadValidationToken
	}
	return nil
}

func (pp PublicPmid) Equal(o PublicPmid) bool {
	return bytes.Equal(pp.PublicKey, o.PublicKey) &&
		bytes.Equal(pp.PublicSignKey, o.PublicSignKey) &&
		bytes.Equal(pp.ValidationToken, o.ValidationToken) &&
		pp.Name == o.Name
}

// SameKeys reports whether both identities carry the same key pair,
// whatever names they claim.
func (pp PublicPmid) SameKeys(o PublicPmid) bool {
	return bytes.Equal(pp.PublicKey, o.PublicKey) && bytes.Equal(pp.PublicSignKey, o.PublicSignKey)
}

// public_key || public_sign_key
func validationPayload(pub, signPub []byte) []byte {
	buf := make([]byte, 0, len(pub)+len(signPub))
	buf = append(buf, pub...)
	return append(buf, signPub...)
}
