package transition

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/dashpay/platform-sub039/dpp"
	"github.com/dashpay/platform-sub039/inter"
	"github.com/dashpay/platform-sub039/platform"
	"github.com/dashpay/platform-sub039/utils/cser"
)

// Decoding caps. They only bound allocations; the versioned limits enforced
// during validation are stricter.
const (
	maxCollection = 256
	maxBlob       = cser.MaxAlloc
	maxName       = 256
	maxSignature  = 128
)

var ErrUnknownKind = errors.New("unknown transition kind")

// UnsupportedVersionError is returned for a feature version this node has
// no layout for.
type UnsupportedVersionError struct {
	Kind    Kind
	Version platform.FeatureVersion
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported %s feature version %d", e.Kind, e.Version)
}

type body interface {
	StateTransition
	marshalBody(w *cser.Writer, withSig bool)
	unmarshalBody(r *cser.Reader)
}

func newBody(kind Kind, v platform.FeatureVersion) (body, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, kind)
	}
	if v != 0 {
		return nil, &UnsupportedVersionError{Kind: kind, Version: v}
	}
	switch kind {
	case KindIdentityCreate:
		return &IdentityCreateV0{}, nil
	case KindIdentityTopUp:
		return &IdentityTopUpV0{}, nil
	case KindIdentityUpdate:
		return &IdentityUpdateV0{}, nil
	case KindCreditTransfer:
		return &CreditTransferV0{}, nil
	case KindCreditWithdrawal:
		return &CreditWithdrawalV0{}, nil
	case KindContractCreate:
		return &ContractCreateV0{}, nil
	case KindContractUpdate:
		return &ContractUpdateV0{}, nil
	case KindDocumentsBatch:
		return &DocumentsBatchV0{}, nil
	default:
		return &TokensBatchV0{}, nil
	}
}

func marshal(st StateTransition, withSig bool) ([]byte, error) {
	b, ok := st.(body)
	if !ok {
		return nil, fmt.Errorf("unsupported transition type %T", st)
	}
	return cser.MarshalBinaryAdapter(func(w *cser.Writer) error {
		w.U8(uint8(b.Kind()))
		w.U16(uint16(b.FeatureVersion()))
		b.marshalBody(w, withSig)
		return nil
	})
}

// Encode returns the wire form of st.
func Encode(st StateTransition) ([]byte, error) {
	return marshal(st, true)
}

func signable(st StateTransition) ([]byte, error) {
	return marshal(st, false)
}

// Decode parses the wire form. The encoding must be canonical: padded
// integers, unused bits and trailing bytes are rejected.
func Decode(raw []byte) (StateTransition, error) {
	var out body
	err := cser.UnmarshalBinaryAdapter(raw, func(r *cser.Reader) error {
		kind := Kind(r.U8())
		version := platform.FeatureVersion(r.U16())
		b, err := newBody(kind, version)
		if err != nil {
			return err
		}
		b.unmarshalBody(r)
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Hash identifies an encoded transition.
func Hash(raw []byte) hash.Hash {
	return hash.BytesToHash(crypto.Keccak256(raw))
}

func writeID(w *cser.Writer, id inter.Identifier) { w.Bytes32(id) }

func readID(r *cser.Reader) inter.Identifier { return inter.Identifier(r.Bytes32()) }

func writeSigned(w *cser.Writer, s *Signed, withSig bool) {
	w.U32(s.KeyID)
	w.U16(s.FeeIncrease)
	if withSig {
		w.SliceBytes(s.Sig)
	}
}

func readSigned(r *cser.Reader, s *Signed) {
	s.KeyID = r.U32()
	s.FeeIncrease = r.U16()
	s.Sig = r.SliceBytes(maxSignature)
}

func writeKey(w *cser.Writer, k *dpp.IdentityPublicKey) {
	w.U32(k.ID)
	w.U8(uint8(k.Type))
	w.U8(uint8(k.Purpose))
	w.U8(uint8(k.SecurityLevel))
	w.SliceBytes(k.Data)
	w.Bool(k.ReadOnly)
	w.U64(k.DisabledAt)
}

func readKey(r *cser.Reader) dpp.IdentityPublicKey {
	return dpp.IdentityPublicKey{
		ID:            r.U32(),
		Type:          dpp.KeyType(r.U8()),
		Purpose:       dpp.Purpose(r.U8()),
		SecurityLevel: dpp.SecurityLevel(r.U8()),
		Data:          r.SliceBytes(maxName),
		ReadOnly:      r.Bool(),
		DisabledAt:    r.U64(),
	}
}

func writeKeysInCreation(w *cser.Writer, keys []KeyInCreation, withSig bool) {
	w.Len(len(keys))
	for i := range keys {
		writeKey(w, &keys[i].Key)
		if withSig {
			w.SliceBytes(keys[i].Signature)
		}
	}
}

func readKeysInCreation(r *cser.Reader) []KeyInCreation {
	n := r.Len(maxCollection)
	keys := make([]KeyInCreation, n)
	for i := range keys {
		keys[i].Key = readKey(r)
		keys[i].Signature = r.SliceBytes(maxSignature)
	}
	return keys
}

func writeAssetLock(w *cser.Writer, p *dpp.AssetLockProof) {
	w.U8(uint8(p.Type))
	w.FixedBytes(p.OutPoint[:])
	w.U64(p.Amount)
	w.FixedBytes(p.CreditPubKeyHash[:])
	w.U32(p.CoreChainLockedHeight)
	w.SliceBytes(p.InstantLock)
}

func readAssetLock(r *cser.Reader) dpp.AssetLockProof {
	var p dpp.AssetLockProof
	p.Type = dpp.AssetLockType(r.U8())
	r.FixedBytes(p.OutPoint[:])
	p.Amount = r.U64()
	r.FixedBytes(p.CreditPubKeyHash[:])
	p.CoreChainLockedHeight = r.U32()
	p.InstantLock = r.SliceBytes(maxBlob)
	return p
}

func writeFields(w *cser.Writer, fields []dpp.Field) {
	w.Len(len(fields))
	for _, f := range fields {
		w.String(f.Name)
		w.SliceBytes(f.Value)
	}
}

func readFields(r *cser.Reader) []dpp.Field {
	fields := make([]dpp.Field, r.Len(maxCollection))
	for i := range fields {
		fields[i].Name = r.String(maxName)
		fields[i].Value = r.SliceBytes(maxBlob)
	}
	return fields
}

func writeContract(w *cser.Writer, c *dpp.DataContract) {
	writeID(w, c.ID)
	writeID(w, c.OwnerID)
	w.U32(c.Version)
	w.Bool(c.KeepsHistory)
	w.Len(len(c.DocumentTypes))
	for i := range c.DocumentTypes {
		dt := &c.DocumentTypes[i]
		w.String(dt.Name)
		w.Len(len(dt.Properties))
		for _, p := range dt.Properties {
			w.String(p.Name)
			w.U8(uint8(p.Type))
			w.Bool(p.Required)
			w.U32(p.MaxLength)
		}
		w.Len(len(dt.Indices))
		for _, idx := range dt.Indices {
			w.String(idx.Name)
			w.Len(len(idx.Properties))
			for _, p := range idx.Properties {
				w.String(p)
			}
			w.Bool(idx.Unique)
		}
		w.Bool(dt.Mutable)
		w.Bool(dt.CanBeDeleted)
		w.Bool(dt.Transferable)
		w.Bool(dt.Tradeable)
		w.Bool(dt.KeepsHistory)
	}
	w.Len(len(c.Tokens))
	for _, t := range c.Tokens {
		w.U16(t.Position)
		w.U64(t.BaseSupply)
		w.U64(t.MaxSupply)
		w.U8(t.Decimals)
		w.Bool(t.KeepsHistory)
	}
}

func readContract(r *cser.Reader) dpp.DataContract {
	var c dpp.DataContract
	c.ID = readID(r)
	c.OwnerID = readID(r)
	c.Version = r.U32()
	c.KeepsHistory = r.Bool()
	c.DocumentTypes = make([]dpp.DocumentType, r.Len(maxCollection))
	for i := range c.DocumentTypes {
		dt := &c.DocumentTypes[i]
		dt.Name = r.String(maxName)
		dt.Properties = make([]dpp.PropertyDef, r.Len(maxCollection))
		for j := range dt.Properties {
			dt.Properties[j] = dpp.PropertyDef{
				Name:      r.String(maxName),
				Type:      dpp.PropertyType(r.U8()),
				Required:  r.Bool(),
				MaxLength: r.U32(),
			}
		}
		dt.Indices = make([]dpp.Index, r.Len(maxCollection))
		for j := range dt.Indices {
			idx := &dt.Indices[j]
			idx.Name = r.String(maxName)
			idx.Properties = make([]string, r.Len(maxCollection))
			for k := range idx.Properties {
				idx.Properties[k] = r.String(maxName)
			}
			idx.Unique = r.Bool()
		}
		dt.Mutable = r.Bool()
		dt.CanBeDeleted = r.Bool()
		dt.Transferable = r.Bool()
		dt.Tradeable = r.Bool()
		dt.KeepsHistory = r.Bool()
	}
	c.Tokens = make([]dpp.TokenConfiguration, r.Len(maxCollection))
	for i := range c.Tokens {
		c.Tokens[i] = dpp.TokenConfiguration{
			Position:     r.U16(),
			BaseSupply:   r.U64(),
			MaxSupply:    r.U64(),
			Decimals:     r.U8(),
			KeepsHistory: r.Bool(),
		}
	}
	return c
}

func (t *IdentityCreateV0) marshalBody(w *cser.Writer, withSig bool) {
	writeAssetLock(w, &t.AssetLock)
	writeKeysInCreation(w, t.PublicKeys, withSig)
	writeSigned(w, &t.Signed, withSig)
}

func (t *IdentityCreateV0) unmarshalBody(r *cser.Reader) {
	t.AssetLock = readAssetLock(r)
	t.PublicKeys = readKeysInCreation(r)
	readSigned(r, &t.Signed)
}

func (t *IdentityTopUpV0) marshalBody(w *cser.Writer, withSig bool) {
	writeID(w, t.IdentityID)
	writeAssetLock(w, &t.AssetLock)
	writeSigned(w, &t.Signed, withSig)
}

func (t *IdentityTopUpV0) unmarshalBody(r *cser.Reader) {
	t.IdentityID = readID(r)
	t.AssetLock = readAssetLock(r)
	readSigned(r, &t.Signed)
}

func (t *IdentityUpdateV0) marshalBody(w *cser.Writer, withSig bool) {
	writeID(w, t.IdentityID)
	w.U64(t.Revision)
	w.U64(t.Nonce)
	writeKeysInCreation(w, t.AddKeys, withSig)
	w.Len(len(t.DisableKeys))
	for _, id := range t.DisableKeys {
		w.U32(id)
	}
	writeSigned(w, &t.Signed, withSig)
}

func (t *IdentityUpdateV0) unmarshalBody(r *cser.Reader) {
	t.IdentityID = readID(r)
	t.Revision = r.U64()
	t.Nonce = r.U64()
	t.AddKeys = readKeysInCreation(r)
	t.DisableKeys = make([]uint32, r.Len(maxCollection))
	for i := range t.DisableKeys {
		t.DisableKeys[i] = r.U32()
	}
	readSigned(r, &t.Signed)
}

func (t *CreditTransferV0) marshalBody(w *cser.Writer, withSig bool) {
	writeID(w, t.IdentityID)
	writeID(w, t.RecipientID)
	w.U64(t.Amount)
	w.U64(t.Nonce)
	writeSigned(w, &t.Signed, withSig)
}

func (t *CreditTransferV0) unmarshalBody(r *cser.Reader) {
	t.IdentityID = readID(r)
	t.RecipientID = readID(r)
	t.Amount = r.U64()
	t.Nonce = r.U64()
	readSigned(r, &t.Signed)
}

func (t *CreditWithdrawalV0) marshalBody(w *cser.Writer, withSig bool) {
	writeID(w, t.IdentityID)
	w.U64(t.Amount)
	w.U32(t.CoreFeePerByte)
	w.SliceBytes(t.OutputScript)
	w.U64(t.Nonce)
	writeSigned(w, &t.Signed, withSig)
}

func (t *CreditWithdrawalV0) unmarshalBody(r *cser.Reader) {
	t.IdentityID = readID(r)
	t.Amount = r.U64()
	t.CoreFeePerByte = r.U32()
	t.OutputScript = r.SliceBytes(maxName)
	t.Nonce = r.U64()
	readSigned(r, &t.Signed)
}

func (t *ContractCreateV0) marshalBody(w *cser.Writer, withSig bool) {
	writeContract(w, &t.Contract)
	w.U64(t.Nonce)
	writeSigned(w, &t.Signed, withSig)
}

func (t *ContractCreateV0) unmarshalBody(r *cser.Reader) {
	t.Contract = readContract(r)
	t.Nonce = r.U64()
	readSigned(r, &t.Signed)
}

func (t *ContractUpdateV0) marshalBody(w *cser.Writer, withSig bool) {
	writeContract(w, &t.Contract)
	w.U64(t.Nonce)
	writeSigned(w, &t.Signed, withSig)
}

func (t *ContractUpdateV0) unmarshalBody(r *cser.Reader) {
	t.Contract = readContract(r)
	t.Nonce = r.U64()
	readSigned(r, &t.Signed)
}

func (t *DocumentsBatchV0) marshalBody(w *cser.Writer, withSig bool) {
	writeID(w, t.Owner)
	w.Len(len(t.Transitions))
	for i := range t.Transitions {
		d := &t.Transitions[i]
		w.U8(uint8(d.Action))
		writeID(w, d.ContractID)
		w.String(d.DocumentType)
		writeID(w, d.DocumentID)
		w.U64(d.Nonce)
		w.U64(d.Revision)
		w.Bytes32(d.Entropy)
		writeFields(w, d.Fields)
		writeID(w, d.Recipient)
		w.U64(d.Price)
	}
	writeSigned(w, &t.Signed, withSig)
}

func (t *DocumentsBatchV0) unmarshalBody(r *cser.Reader) {
	t.Owner = readID(r)
	t.Transitions = make([]DocumentTransition, r.Len(maxCollection))
	for i := range t.Transitions {
		d := &t.Transitions[i]
		d.Action = DocumentAction(r.U8())
		d.ContractID = readID(r)
		d.DocumentType = r.String(maxName)
		d.DocumentID = readID(r)
		d.Nonce = r.U64()
		d.Revision = r.U64()
		d.Entropy = r.Bytes32()
		d.Fields = readFields(r)
		d.Recipient = readID(r)
		d.Price = r.U64()
	}
	readSigned(r, &t.Signed)
}

func (t *TokensBatchV0) marshalBody(w *cser.Writer, withSig bool) {
	writeID(w, t.Owner)
	w.Len(len(t.Transitions))
	for _, tt := range t.Transitions {
		w.U8(uint8(tt.Action))
		writeID(w, tt.ContractID)
		w.U16(tt.Position)
		w.U64(tt.Nonce)
		w.U64(tt.Amount)
		writeID(w, tt.Recipient)
	}
	writeSigned(w, &t.Signed, withSig)
}

func (t *TokensBatchV0) unmarshalBody(r *cser.Reader) {
	t.Owner = readID(r)
	t.Transitions = make([]TokenTransition, r.Len(maxCollection))
	for i := range t.Transitions {
		t.Transitions[i] = TokenTransition{
			Action:     TokenAction(r.U8()),
			ContractID: readID(r),
			Position:   r.U16(),
			Nonce:      r.U64(),
			Amount:     r.U64(),
			Recipient:  readID(r),
		}
	}
	readSigned(r, &t.Signed)
}
