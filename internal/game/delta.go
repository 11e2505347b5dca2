package game

import "gridfort/internal/wire"

// Structural delta compression between two snapshots of identical schema.
// Every struct writes a bitmask of changed fields followed by the changed
// fields; slices write the new length, then per-8-element bitmask chunks
// where a set bit means "changed against the old element at this index"
// (delta) or "index is new" (full value). Encoder and decoder walk the
// same fields in the same order, so the method pairs below must stay
// symmetrical.

// deltaValue is the per-element contract slices of snapshot structs
// satisfy.
type deltaValue[T any] interface {
	*T
	Encode(wire.Sink)
	Decode(*wire.Reader)
	Equal(*T) bool
	DeltaEncode(*wire.Writer, *T)
	DeltaDecode(*wire.Reader)
}

func encodeSlice[T any, PT deltaValue[T]](w wire.Sink, s []T) {
	n := int(wire.SeqLen(len(s)))
	w.WriteU16(uint16(n))
	for i := 0; i < n; i++ {
		PT(&s[i]).Encode(w)
	}
}

func decodeSlice[T any, PT deltaValue[T]](r *wire.Reader) []T {
	n := int(r.U16())
	if !r.Valid() || n == 0 {
		return nil
	}
	s := make([]T, n)
	for i := range s {
		PT(&s[i]).Decode(r)
		if !r.Valid() {
			return nil
		}
	}
	return s
}

func equalSlice[T any, PT deltaValue[T]](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !PT(&a[i]).Equal(&b[i]) {
			return false
		}
	}
	return true
}

func deltaEncodeSlice[T any, PT deltaValue[T]](w *wire.Writer, old, cur []T) {
	n := int(wire.SeqLen(len(cur)))
	w.WriteU16(uint16(n))
	if n == 0 {
		return
	}
	maskAt := w.Len()
	var mask uint8
	w.WriteU8(0)
	maskBit := 0
	for i := 0; i < n; i++ {
		if maskBit == 8 {
			w.ReplaceU8(maskAt, mask)
			mask = 0
			maskAt = w.Len()
			w.WriteU8(0)
			maskBit = 0
		}
		if i < len(old) {
			if !PT(&cur[i]).Equal(&old[i]) {
				mask |= 1 << maskBit
				PT(&cur[i]).DeltaEncode(w, &old[i])
			}
		} else {
			mask |= 1 << maskBit
			PT(&cur[i]).Encode(w)
		}
		maskBit++
	}
	w.ReplaceU8(maskAt, mask)
}

func deltaDecodeSlice[T any, PT deltaValue[T]](r *wire.Reader, s *[]T) {
	n := int(r.U16())
	if !r.Valid() {
		return
	}
	if n == 0 {
		*s = nil
		return
	}
	oldSize := len(*s)
	if n <= oldSize {
		*s = (*s)[:n]
	} else {
		grown := make([]T, n)
		copy(grown, *s)
		*s = grown
	}
	mask := r.U8()
	maskBit := 0
	for i := 0; i < n; i++ {
		if maskBit == 8 {
			mask = r.U8()
			maskBit = 0
		}
		if !r.Valid() {
			return
		}
		if mask&(1<<maskBit) != 0 {
			if i < oldSize {
				PT(&(*s)[i]).DeltaDecode(r)
			} else {
				PT(&(*s)[i]).Decode(r)
			}
		}
		maskBit++
	}
}

// Snapshot

func (s *Snapshot) Encode(w wire.Sink) {
	w.WriteU32(s.TickCount)
	w.WriteU32(s.RoundSecondsLeft)
	s.SelfPlayer.Encode(w)
	encodeSlice[FlagInfo](w, s.FlagInfo)
	encodeSlice[CartInfo](w, s.CartInfo)
	encodeSlice[PlayerInfo](w, s.PlayerInfo)
	encodeSlice[VisiblePlayer](w, s.Players)
	encodeSlice[VisibleCorpse](w, s.Corpses)
	encodeSlice[VisibleSentryGun](w, s.SentryGuns)
	encodeSlice[VisibleProjectile](w, s.Projectiles)
	encodeSlice[VisibleExplosion](w, s.Explosions)
	encodeSlice[VisibleMedkit](w, s.Medkits)
	encodeSlice[VisibleAmmopack](w, s.Ammopacks)
	encodeSlice[VisibleGenericEntity](w, s.GenericEntities)
	encodeSlice[VisibleFlag](w, s.Flags)
	encodeSlice[VisibleCart](w, s.Carts)
}

func (s *Snapshot) Decode(r *wire.Reader) {
	s.TickCount = r.U32()
	s.RoundSecondsLeft = r.U32()
	s.SelfPlayer.Decode(r)
	s.FlagInfo = decodeSlice[FlagInfo](r)
	s.CartInfo = decodeSlice[CartInfo](r)
	s.PlayerInfo = decodeSlice[PlayerInfo](r)
	s.Players = decodeSlice[VisiblePlayer](r)
	s.Corpses = decodeSlice[VisibleCorpse](r)
	s.SentryGuns = decodeSlice[VisibleSentryGun](r)
	s.Projectiles = decodeSlice[VisibleProjectile](r)
	s.Explosions = decodeSlice[VisibleExplosion](r)
	s.Medkits = decodeSlice[VisibleMedkit](r)
	s.Ammopacks = decodeSlice[VisibleAmmopack](r)
	s.GenericEntities = decodeSlice[VisibleGenericEntity](r)
	s.Flags = decodeSlice[VisibleFlag](r)
	s.Carts = decodeSlice[VisibleCart](r)
}

func (s *Snapshot) Equal(o *Snapshot) bool {
	return s.TickCount == o.TickCount &&
		s.RoundSecondsLeft == o.RoundSecondsLeft &&
		s.SelfPlayer.Equal(&o.SelfPlayer) &&
		equalSlice[FlagInfo](s.FlagInfo, o.FlagInfo) &&
		equalSlice[CartInfo](s.CartInfo, o.CartInfo) &&
		equalSlice[PlayerInfo](s.PlayerInfo, o.PlayerInfo) &&
		equalSlice[VisiblePlayer](s.Players, o.Players) &&
		equalSlice[VisibleCorpse](s.Corpses, o.Corpses) &&
		equalSlice[VisibleSentryGun](s.SentryGuns, o.SentryGuns) &&
		equalSlice[VisibleProjectile](s.Projectiles, o.Projectiles) &&
		equalSlice[VisibleExplosion](s.Explosions, o.Explosions) &&
		equalSlice[VisibleMedkit](s.Medkits, o.Medkits) &&
		equalSlice[VisibleAmmopack](s.Ammopacks, o.Ammopacks) &&
		equalSlice[VisibleGenericEntity](s.GenericEntities, o.GenericEntities) &&
		equalSlice[VisibleFlag](s.Flags, o.Flags) &&
		equalSlice[VisibleCart](s.Carts, o.Carts)
}

// DeltaEncode writes the delta that turns old into s.
func (s *Snapshot) DeltaEncode(w *wire.Writer, old *Snapshot) {
	maskAt := w.Len()
	var mask uint16
	w.WriteU16(0)
	if s.TickCount != old.TickCount {
		mask |= 1 << 0
		w.WriteU32(s.TickCount)
	}
	if s.RoundSecondsLeft != old.RoundSecondsLeft {
		mask |= 1 << 1
		w.WriteU32(s.RoundSecondsLeft)
	}
	if !s.SelfPlayer.Equal(&old.SelfPlayer) {
		mask |= 1 << 2
		s.SelfPlayer.DeltaEncode(w, &old.SelfPlayer)
	}
	if !equalSlice[FlagInfo](s.FlagInfo, old.FlagInfo) {
		mask |= 1 << 3
		deltaEncodeSlice[FlagInfo](w, old.FlagInfo, s.FlagInfo)
	}
	if !equalSlice[CartInfo](s.CartInfo, old.CartInfo) {
		mask |= 1 << 4
		deltaEncodeSlice[CartInfo](w, old.CartInfo, s.CartInfo)
	}
	if !equalSlice[PlayerInfo](s.PlayerInfo, old.PlayerInfo) {
		mask |= 1 << 5
		deltaEncodeSlice[PlayerInfo](w, old.PlayerInfo, s.PlayerInfo)
	}
	if !equalSlice[VisiblePlayer](s.Players, old.Players) {
		mask |= 1 << 6
		deltaEncodeSlice[VisiblePlayer](w, old.Players, s.Players)
	}
	if !equalSlice[VisibleCorpse](s.Corpses, old.Corpses) {
		mask |= 1 << 7
		deltaEncodeSlice[VisibleCorpse](w, old.Corpses, s.Corpses)
	}
	if !equalSlice[VisibleSentryGun](s.SentryGuns, old.SentryGuns) {
		mask |= 1 << 8
		deltaEncodeSlice[VisibleSentryGun](w, old.SentryGuns, s.SentryGuns)
	}
	if !equalSlice[VisibleProjectile](s.Projectiles, old.Projectiles) {
		mask |= 1 << 9
		deltaEncodeSlice[VisibleProjectile](w, old.Projectiles, s.Projectiles)
	}
	if !equalSlice[VisibleExplosion](s.Explosions, old.Explosions) {
		mask |= 1 << 10
		deltaEncodeSlice[VisibleExplosion](w, old.Explosions, s.Explosions)
	}
	if !equalSlice[VisibleMedkit](s.Medkits, old.Medkits) {
		mask |= 1 << 11
		deltaEncodeSlice[VisibleMedkit](w, old.Medkits, s.Medkits)
	}
	if !equalSlice[VisibleAmmopack](s.Ammopacks, old.Ammopacks) {
		mask |= 1 << 12
		deltaEncodeSlice[VisibleAmmopack](w, old.Ammopacks, s.Ammopacks)
	}
	if !equalSlice[VisibleGenericEntity](s.GenericEntities, old.GenericEntities) {
		mask |= 1 << 13
		deltaEncodeSlice[VisibleGenericEntity](w, old.GenericEntities, s.GenericEntities)
	}
	if !equalSlice[VisibleFlag](s.Flags, old.Flags) {
		mask |= 1 << 14
		deltaEncodeSlice[VisibleFlag](w, old.Flags, s.Flags)
	}
	if !equalSlice[VisibleCart](s.Carts, old.Carts) {
		mask |= 1 << 15
		deltaEncodeSlice[VisibleCart](w, old.Carts, s.Carts)
	}
	w.ReplaceU16(maskAt, mask)
}

// DeltaDecode applies a delta in place: s must hold the snapshot the delta
// was encoded against.
func (s *Snapshot) DeltaDecode(r *wire.Reader) {
	mask := r.U16()
	if !r.Valid() {
		return
	}
	if mask&(1<<0) != 0 {
		s.TickCount = r.U32()
	}
	if mask&(1<<1) != 0 {
		s.RoundSecondsLeft = r.U32()
	}
	if mask&(1<<2) != 0 {
		s.SelfPlayer.DeltaDecode(r)
	}
	if mask&(1<<3) != 0 {
		deltaDecodeSlice[FlagInfo](r, &s.FlagInfo)
	}
	if mask&(1<<4) != 0 {
		deltaDecodeSlice[CartInfo](r, &s.CartInfo)
	}
	if mask&(1<<5) != 0 {
		deltaDecodeSlice[PlayerInfo](r, &s.PlayerInfo)
	}
	if mask&(1<<6) != 0 {
		deltaDecodeSlice[VisiblePlayer](r, &s.Players)
	}
	if mask&(1<<7) != 0 {
		deltaDecodeSlice[VisibleCorpse](r, &s.Corpses)
	}
	if mask&(1<<8) != 0 {
		deltaDecodeSlice[VisibleSentryGun](r, &s.SentryGuns)
	}
	if mask&(1<<9) != 0 {
		deltaDecodeSlice[VisibleProjectile](r, &s.Projectiles)
	}
	if mask&(1<<10) != 0 {
		deltaDecodeSlice[VisibleExplosion](r, &s.Explosions)
	}
	if mask&(1<<11) != 0 {
		deltaDecodeSlice[VisibleMedkit](r, &s.Medkits)
	}
	if mask&(1<<12) != 0 {
		deltaDecodeSlice[VisibleAmmopack](r, &s.Ammopacks)
	}
	if mask&(1<<13) != 0 {
		deltaDecodeSlice[VisibleGenericEntity](r, &s.GenericEntities)
	}
	if mask&(1<<14) != 0 {
		deltaDecodeSlice[VisibleFlag](r, &s.Flags)
	}
	if mask&(1<<15) != 0 {
		deltaDecodeSlice[VisibleCart](r, &s.Carts)
	}
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() Snapshot {
	out := *s
	out.FlagInfo = append([]FlagInfo(nil), s.FlagInfo...)
	out.CartInfo = append([]CartInfo(nil), s.CartInfo...)
	out.PlayerInfo = append([]PlayerInfo(nil), s.PlayerInfo...)
	out.Players = append([]VisiblePlayer(nil), s.Players...)
	out.Corpses = append([]VisibleCorpse(nil), s.Corpses...)
	out.SentryGuns = append([]VisibleSentryGun(nil), s.SentryGuns...)
	out.Projectiles = append([]VisibleProjectile(nil), s.Projectiles...)
	out.Explosions = append([]VisibleExplosion(nil), s.Explosions...)
	out.Medkits = append([]VisibleMedkit(nil), s.Medkits...)
	out.Ammopacks = append([]VisibleAmmopack(nil), s.Ammopacks...)
	out.GenericEntities = make([]VisibleGenericEntity, len(s.GenericEntities))
	for i := range s.GenericEntities {
		out.GenericEntities[i] = s.GenericEntities[i]
		out.GenericEntities[i].Matrix = s.GenericEntities[i].Matrix.Clone()
	}
	out.Flags = append([]VisibleFlag(nil), s.Flags...)
	out.Carts = append([]VisibleCart(nil), s.Carts...)
	return out
}

// SelfPlayer

func (s *SelfPlayer) Encode(w wire.Sink) {
	s.Position.Encode(w)
	s.Team.Encode(w)
	s.SkinTeam.Encode(w)
	w.WriteBool(s.Alive)
	s.AimDirection.Encode(w)
	s.Class.Encode(w)
	w.WriteI32(s.Health)
	w.WriteI32(s.PrimaryAmmo)
	w.WriteI32(s.SecondaryAmmo)
	s.Hat.Encode(w)
}

func (s *SelfPlayer) Decode(r *wire.Reader) {
	s.Position = DecodeVec2(r)
	s.Team = DecodeTeam(r)
	s.SkinTeam = DecodeTeam(r)
	s.Alive = r.Bool()
	s.AimDirection = DecodeDirection(r)
	s.Class = DecodePlayerClass(r)
	s.Health = r.I32()
	s.PrimaryAmmo = r.I32()
	s.SecondaryAmmo = r.I32()
	s.Hat = DecodeHat(r)
}

func (s *SelfPlayer) Equal(o *SelfPlayer) bool { return *s == *o }

func (s *SelfPlayer) DeltaEncode(w *wire.Writer, old *SelfPlayer) {
	maskAt := w.Len()
	var mask uint16
	w.WriteU16(0)
	if s.Position != old.Position {
		mask |= 1 << 0
		s.Position.Encode(w)
	}
	if s.Team != old.Team {
		mask |= 1 << 1
		s.Team.Encode(w)
	}
	if s.SkinTeam != old.SkinTeam {
		mask |= 1 << 2
		s.SkinTeam.Encode(w)
	}
	if s.Alive != old.Alive {
		mask |= 1 << 3
		w.WriteBool(s.Alive)
	}
	if s.AimDirection != old.AimDirection {
		mask |= 1 << 4
		s.AimDirection.Encode(w)
	}
	if s.Class != old.Class {
		mask |= 1 << 5
		s.Class.Encode(w)
	}
	if s.Health != old.Health {
		mask |= 1 << 6
		w.WriteI32(s.Health)
	}
	if s.PrimaryAmmo != old.PrimaryAmmo {
		mask |= 1 << 7
		w.WriteI32(s.PrimaryAmmo)
	}
	if s.SecondaryAmmo != old.SecondaryAmmo {
		mask |= 1 << 8
		w.WriteI32(s.SecondaryAmmo)
	}
	if s.Hat != old.Hat {
		mask |= 1 << 9
		s.Hat.Encode(w)
	}
	w.ReplaceU16(maskAt, mask)
}

func (s *SelfPlayer) DeltaDecode(r *wire.Reader) {
	mask := r.U16()
	if !r.Valid() {
		return
	}
	if mask&(1<<0) != 0 {
		s.Position = DecodeVec2(r)
	}
	if mask&(1<<1) != 0 {
		s.Team = DecodeTeam(r)
	}
	if mask&(1<<2) != 0 {
		s.SkinTeam = DecodeTeam(r)
	}
	if mask&(1<<3) != 0 {
		s.Alive = r.Bool()
	}
	if mask&(1<<4) != 0 {
		s.AimDirection = DecodeDirection(r)
	}
	if mask&(1<<5) != 0 {
		s.Class = DecodePlayerClass(r)
	}
	if mask&(1<<6) != 0 {
		s.Health = r.I32()
	}
	if mask&(1<<7) != 0 {
		s.PrimaryAmmo = r.I32()
	}
	if mask&(1<<8) != 0 {
		s.SecondaryAmmo = r.I32()
	}
	if mask&(1<<9) != 0 {
		s.Hat = DecodeHat(r)
	}
}

// FlagInfo

func (f *FlagInfo) Encode(w wire.Sink) {
	f.Team.Encode(w)
	w.WriteI32(f.Score)
}

func (f *FlagInfo) Decode(r *wire.Reader) {
	f.Team = DecodeTeam(r)
	f.Score = r.I32()
}

func (f *FlagInfo) Equal(o *FlagInfo) bool { return *f == *o }

func (f *FlagInfo) DeltaEncode(w *wire.Writer, old *FlagInfo) {
	maskAt := w.Len()
	var mask uint8
	w.WriteU8(0)
	if f.Team != old.Team {
		mask |= 1 << 0
		f.Team.Encode(w)
	}
	if f.Score != old.Score {
		mask |= 1 << 1
		w.WriteI32(f.Score)
	}
	w.ReplaceU8(maskAt, mask)
}

func (f *FlagInfo) DeltaDecode(r *wire.Reader) {
	mask := r.U8()
	if !r.Valid() {
		return
	}
	if mask&(1<<0) != 0 {
		f.Team = DecodeTeam(r)
	}
	if mask&(1<<1) != 0 {
		f.Score = r.I32()
	}
}

// CartInfo

func (c *CartInfo) Encode(w wire.Sink) {
	c.Team.Encode(w)
	w.WriteU16(c.Progress)
	w.WriteU16(c.TrackLength)
}

func (c *CartInfo) Decode(r *wire.Reader) {
	c.Team = DecodeTeam(r)
	c.Progress = r.U16()
	c.TrackLength = r.U16()
}

func (c *CartInfo) Equal(o *CartInfo) bool { return *c == *o }

func (c *CartInfo) DeltaEncode(w *wire.Writer, old *CartInfo) {
	maskAt := w.Len()
	var mask uint8
	w.WriteU8(0)
	if c.Team != old.Team {
		mask |= 1 << 0
		c.Team.Encode(w)
	}
	if c.Progress != old.Progress {
		mask |= 1 << 1
		w.WriteU16(c.Progress)
	}
	if c.TrackLength != old.TrackLength {
		mask |= 1 << 2
		w.WriteU16(c.TrackLength)
	}
	w.ReplaceU8(maskAt, mask)
}

func (c *CartInfo) DeltaDecode(r *wire.Reader) {
	mask := r.U8()
	if !r.Valid() {
		return
	}
	if mask&(1<<0) != 0 {
		c.Team = DecodeTeam(r)
	}
	if mask&(1<<1) != 0 {
		c.Progress = r.U16()
	}
	if mask&(1<<2) != 0 {
		c.TrackLength = r.U16()
	}
}

// PlayerInfo

func (p *PlayerInfo) Encode(w wire.Sink) {
	w.WriteU32(uint32(p.ID))
	p.Team.Encode(w)
	w.WriteI32(p.Score)
	p.Class.Encode(w)
	w.WriteU32(p.Ping)
	w.WriteString(p.Name)
}

func (p *PlayerInfo) Decode(r *wire.Reader) {
	p.ID = PlayerID(r.U32())
	p.Team = DecodeTeam(r)
	p.Score = r.I32()
	p.Class = DecodePlayerClass(r)
	p.Ping = r.U32()
	p.Name = r.String()
}

func (p *PlayerInfo) Equal(o *PlayerInfo) bool { return *p == *o }

func (p *PlayerInfo) DeltaEncode(w *wire.Writer, old *PlayerInfo) {
	maskAt := w.Len()
	var mask uint8
	w.WriteU8(0)
	if p.ID != old.ID {
		mask |= 1 << 0
		w.WriteU32(uint32(p.ID))
	}
	if p.Team != old.Team {
		mask |= 1 << 1
		p.Team.Encode(w)
	}
	if p.Score != old.Score {
		mask |= 1 << 2
		w.WriteI32(p.Score)
	}
	if p.Class != old.Class {
		mask |= 1 << 3
		p.Class.Encode(w)
	}
	if p.Ping != old.Ping {
		mask |= 1 << 4
		w.WriteU32(p.Ping)
	}
	if p.Name != old.Name {
		mask |= 1 << 5
		w.WriteString(p.Name)
	}
	w.ReplaceU8(maskAt, mask)
}

func (p *PlayerInfo) DeltaDecode(r *wire.Reader) {
	mask := r.U8()
	if !r.Valid() {
		return
	}
	if mask&(1<<0) != 0 {
		p.ID = PlayerID(r.U32())
	}
	if mask&(1<<1) != 0 {
		p.Team = DecodeTeam(r)
	}
	if mask&(1<<2) != 0 {
		p.Score = r.I32()
	}
	if mask&(1<<3) != 0 {
		p.Class = DecodePlayerClass(r)
	}
	if mask&(1<<4) != 0 {
		p.Ping = r.U32()
	}
	if mask&(1<<5) != 0 {
		p.Name = r.String()
	}
}

// VisiblePlayer

func (p *VisiblePlayer) Encode(w wire.Sink) {
	p.Position.Encode(w)
	p.Team.Encode(w)
	p.AimDirection.Encode(w)
	p.Class.Encode(w)
	p.Hat.Encode(w)
	w.WriteString(p.Name)
}

func (p *VisiblePlayer) Decode(r *wire.Reader) {
	p.Position = DecodeVec2(r)
	p.Team = DecodeTeam(r)
	p.AimDirection = DecodeDirection(r)
	p.Class = DecodePlayerClass(r)
	p.Hat = DecodeHat(r)
	p.Name = r.String()
}

func (p *VisiblePlayer) Equal(o *VisiblePlayer) bool { return *p == *o }

func (p *VisiblePlayer) DeltaEncode(w *wire.Writer, old *VisiblePlayer) {
	maskAt := w.Len()
	var mask uint8
	w.WriteU8(0)
	if p.Position != old.Position {
		mask |= 1 << 0
		p.Position.Encode(w)
	}
	if p.Team != old.Team {
		mask |= 1 << 1
		p.Team.Encode(w)
	}
	if p.AimDirection != old.AimDirection {
		mask |= 1 << 2
		p.AimDirection.Encode(w)
	}
	if p.Class != old.Class {
		mask |= 1 << 3
		p.Class.Encode(w)
	}
	if p.Hat != old.Hat {
		mask |= 1 << 4
		p.Hat.Encode(w)
	}
	if p.Name != old.Name {
		mask |= 1 << 5
		w.WriteString(p.Name)
	}
	w.ReplaceU8(maskAt, mask)
}

func (p *VisiblePlayer) DeltaDecode(r *wire.Reader) {
	mask := r.U8()
	if !r.Valid() {
		return
	}
	if mask&(1<<0) != 0 {
		p.Position = DecodeVec2(r)
	}
	if mask&(1<<1) != 0 {
		p.Team = DecodeTeam(r)
	}
	if mask&(1<<2) != 0 {
		p.AimDirection = DecodeDirection(r)
	}
	if mask&(1<<3) != 0 {
		p.Class = DecodePlayerClass(r)
	}
	if mask&(1<<4) != 0 {
		p.Hat = DecodeHat(r)
	}
	if mask&(1<<5) != 0 {
		p.Name = r.String()
	}
}

// posTeam is the shared shape of the two-field renderables.

func encodePosTeam(w wire.Sink, pos Vec2, team Team) {
	pos.Encode(w)
	team.Encode(w)
}

func deltaEncodePosTeam(w *wire.Writer, pos, oldPos Vec2, team, oldTeam Team) {
	maskAt := w.Len()
	var mask uint8
	w.WriteU8(0)
	if pos != oldPos {
		mask |= 1 << 0
		pos.Encode(w)
	}
	if team != oldTeam {
		mask |= 1 << 1
		team.Encode(w)
	}
	w.ReplaceU8(maskAt, mask)
}

func deltaDecodePosTeam(r *wire.Reader, pos *Vec2, team *Team) {
	mask := r.U8()
	if !r.Valid() {
		return
	}
	if mask&(1<<0) != 0 {
		*pos = DecodeVec2(r)
	}
	if mask&(1<<1) != 0 {
		*team = DecodeTeam(r)
	}
}

// VisibleCorpse

func (c *VisibleCorpse) Encode(w wire.Sink)    { encodePosTeam(w, c.Position, c.Team) }
func (c *VisibleCorpse) Decode(r *wire.Reader) { c.Position = DecodeVec2(r); c.Team = DecodeTeam(r) }
func (c *VisibleCorpse) Equal(o *VisibleCorpse) bool { return *c == *o }

func (c *VisibleCorpse) DeltaEncode(w *wire.Writer, old *VisibleCorpse) {
	deltaEncodePosTeam(w, c.Position, old.Position, c.Team, old.Team)
}

func (c *VisibleCorpse) DeltaDecode(r *wire.Reader) {
	deltaDecodePosTeam(r, &c.Position, &c.Team)
}

// VisibleSentryGun

func (s *VisibleSentryGun) Encode(w wire.Sink) {
	s.Position.Encode(w)
	s.Team.Encode(w)
	s.AimDirection.Encode(w)
	w.WriteU32(uint32(s.Owner))
}

func (s *VisibleSentryGun) Decode(r *wire.Reader) {
	s.Position = DecodeVec2(r)
	s.Team = DecodeTeam(r)
	s.AimDirection = DecodeDirection(r)
	s.Owner = PlayerID(r.U32())
}

func (s *VisibleSentryGun) Equal(o *VisibleSentryGun) bool { return *s == *o }

func (s *VisibleSentryGun) DeltaEncode(w *wire.Writer, old *VisibleSentryGun) {
	maskAt := w.Len()
	var mask uint8
	w.WriteU8(0)
	if s.Position != old.Position {
		mask |= 1 << 0
		s.Position.Encode(w)
	}
	if s.Team != old.Team {
		mask |= 1 << 1
		s.Team.Encode(w)
	}
	if s.AimDirection != old.AimDirection {
		mask |= 1 << 2
		s.AimDirection.Encode(w)
	}
	if s.Owner != old.Owner {
		mask |= 1 << 3
		w.WriteU32(uint32(s.Owner))
	}
	w.ReplaceU8(maskAt, mask)
}

func (s *VisibleSentryGun) DeltaDecode(r *wire.Reader) {
	mask := r.U8()
	if !r.Valid() {
		return
	}
	if mask&(1<<0) != 0 {
		s.Position = DecodeVec2(r)
	}
	if mask&(1<<1) != 0 {
		s.Team = DecodeTeam(r)
	}
	if mask&(1<<2) != 0 {
		s.AimDirection = DecodeDirection(r)
	}
	if mask&(1<<3) != 0 {
		s.Owner = PlayerID(r.U32())
	}
}

// VisibleProjectile

func (p *VisibleProjectile) Encode(w wire.Sink) {
	p.Position.Encode(w)
	p.Team.Encode(w)
	p.Type.Encode(w)
	w.WriteU32(uint32(p.Owner))
}

func (p *VisibleProjectile) Decode(r *wire.Reader) {
	p.Position = DecodeVec2(r)
	p.Team = DecodeTeam(r)
	p.Type = DecodeProjectileType(r)
	p.Owner = PlayerID(r.U32())
}

func (p *VisibleProjectile) Equal(o *VisibleProjectile) bool { return *p == *o }

func (p *VisibleProjectile) DeltaEncode(w *wire.Writer, old *VisibleProjectile) {
	maskAt := w.Len()
	var mask uint8
	w.WriteU8(0)
	if p.Position != old.Position {
		mask |= 1 << 0
		p.Position.Encode(w)
	}
	if p.Team != old.Team {
		mask |= 1 << 1
		p.Team.Encode(w)
	}
	if p.Type != old.Type {
		mask |= 1 << 2
		p.Type.Encode(w)
	}
	if p.Owner != old.Owner {
		mask |= 1 << 3
		w.WriteU32(uint32(p.Owner))
	}
	w.ReplaceU8(maskAt, mask)
}

func (p *VisibleProjectile) DeltaDecode(r *wire.Reader) {
	mask := r.U8()
	if !r.Valid() {
		return
	}
	if mask&(1<<0) != 0 {
		p.Position = DecodeVec2(r)
	}
	if mask&(1<<1) != 0 {
		p.Team = DecodeTeam(r)
	}
	if mask&(1<<2) != 0 {
		p.Type = DecodeProjectileType(r)
	}
	if mask&(1<<3) != 0 {
		p.Owner = PlayerID(r.U32())
	}
}

// VisibleExplosion

func (e *VisibleExplosion) Encode(w wire.Sink)    { encodePosTeam(w, e.Position, e.Team) }
func (e *VisibleExplosion) Decode(r *wire.Reader) { e.Position = DecodeVec2(r); e.Team = DecodeTeam(r) }
func (e *VisibleExplosion) Equal(o *VisibleExplosion) bool { return *e == *o }

func (e *VisibleExplosion) DeltaEncode(w *wire.Writer, old *VisibleExplosion) {
	deltaEncodePosTeam(w, e.Position, old.Position, e.Team, old.Team)
}

func (e *VisibleExplosion) DeltaDecode(r *wire.Reader) {
	deltaDecodePosTeam(r, &e.Position, &e.Team)
}

// VisibleMedkit

func (m *VisibleMedkit) Encode(w wire.Sink)          { m.Position.Encode(w) }
func (m *VisibleMedkit) Decode(r *wire.Reader)       { m.Position = DecodeVec2(r) }
func (m *VisibleMedkit) Equal(o *VisibleMedkit) bool { return *m == *o }

func (m *VisibleMedkit) DeltaEncode(w *wire.Writer, old *VisibleMedkit) {
	maskAt := w.Len()
	var mask uint8
	w.WriteU8(0)
	if m.Position != old.Position {
		mask |= 1 << 0
		m.Position.Encode(w)
	}
	w.ReplaceU8(maskAt, mask)
}

func (m *VisibleMedkit) DeltaDecode(r *wire.Reader) {
	mask := r.U8()
	if r.Valid() && mask&(1<<0) != 0 {
		m.Position = DecodeVec2(r)
	}
}

// VisibleAmmopack

func (a *VisibleAmmopack) Encode(w wire.Sink)            { a.Position.Encode(w) }
func (a *VisibleAmmopack) Decode(r *wire.Reader)         { a.Position = DecodeVec2(r) }
func (a *VisibleAmmopack) Equal(o *VisibleAmmopack) bool { return *a == *o }

func (a *VisibleAmmopack) DeltaEncode(w *wire.Writer, old *VisibleAmmopack) {
	maskAt := w.Len()
	var mask uint8
	w.WriteU8(0)
	if a.Position != old.Position {
		mask |= 1 << 0
		a.Position.Encode(w)
	}
	w.ReplaceU8(maskAt, mask)
}

func (a *VisibleAmmopack) DeltaDecode(r *wire.Reader) {
	mask := r.U8()
	if r.Valid() && mask&(1<<0) != 0 {
		a.Position = DecodeVec2(r)
	}
}

// VisibleGenericEntity

func (g *VisibleGenericEntity) Encode(w wire.Sink) {
	g.Position.Encode(w)
	g.Matrix.Encode(w)
	w.WriteU32(g.Color)
}

func (g *VisibleGenericEntity) Decode(r *wire.Reader) {
	g.Position = DecodeVec2(r)
	g.Matrix = DecodeTileMatrix(r)
	g.Color = r.U32()
}

func (g *VisibleGenericEntity) Equal(o *VisibleGenericEntity) bool {
	return g.Position == o.Position && g.Color == o.Color && g.Matrix.Equal(&o.Matrix)
}

func (g *VisibleGenericEntity) DeltaEncode(w *wire.Writer, old *VisibleGenericEntity) {
	maskAt := w.Len()
	var mask uint8
	w.WriteU8(0)
	if g.Position != old.Position {
		mask |= 1 << 0
		g.Position.Encode(w)
	}
	if !g.Matrix.Equal(&old.Matrix) {
		mask |= 1 << 1
		g.Matrix.Encode(w)
	}
	if g.Color != old.Color {
		mask |= 1 << 2
		w.WriteU32(g.Color)
	}
	w.ReplaceU8(maskAt, mask)
}

func (g *VisibleGenericEntity) DeltaDecode(r *wire.Reader) {
	mask := r.U8()
	if !r.Valid() {
		return
	}
	if mask&(1<<0) != 0 {
		g.Position = DecodeVec2(r)
	}
	if mask&(1<<1) != 0 {
		g.Matrix = DecodeTileMatrix(r)
	}
	if mask&(1<<2) != 0 {
		g.Color = r.U32()
	}
}

// VisibleFlag

func (f *VisibleFlag) Encode(w wire.Sink)    { encodePosTeam(w, f.Position, f.Team) }
func (f *VisibleFlag) Decode(r *wire.Reader) { f.Position = DecodeVec2(r); f.Team = DecodeTeam(r) }
func (f *VisibleFlag) Equal(o *VisibleFlag) bool { return *f == *o }

func (f *VisibleFlag) DeltaEncode(w *wire.Writer, old *VisibleFlag) {
	deltaEncodePosTeam(w, f.Position, old.Position, f.Team, old.Team)
}

func (f *VisibleFlag) DeltaDecode(r *wire.Reader) {
	deltaDecodePosTeam(r, &f.Position, &f.Team)
}

// VisibleCart

func (c *VisibleCart) Encode(w wire.Sink)    { encodePosTeam(w, c.Position, c.Team) }
func (c *VisibleCart) Decode(r *wire.Reader) { c.Position = DecodeVec2(r); c.Team = DecodeTeam(r) }
func (c *VisibleCart) Equal(o *VisibleCart) bool { return *c == *o }

func (c *VisibleCart) DeltaEncode(w *wire.Writer, old *VisibleCart) {
	deltaEncodePosTeam(w, c.Position, old.Position, c.Team, old.Team)
}

func (c *VisibleCart) DeltaDecode(r *wire.Reader) {
	deltaDecodePosTeam(r, &c.Position, &c.Team)
}
