// Package protocol defines the application messages exchanged over the
// reliable and unreliable channels. Each message is a tagged tuple: one
// type byte from a closed per-direction enumeration followed by the fields
// in declared order. Tags are stable; changing one breaks the client/server
// contract.
package protocol

import (
	"github.com/pkg/errors"

	"gridfort/internal/game"
	"gridfort/internal/wire"
)

// Decode errors. The connection owner maps these onto its invalid-message
// counters; a malformed message never tears down the connection by itself.
var (
	ErrUnknownTag = errors.New("protocol: unknown message tag")
	ErrBadPayload = errors.New("protocol: malformed message payload")
)

// Client-to-server message tags.
const (
	TagServerInfoRequest uint8 = iota
	TagJoinRequest
	TagUserCmd
	TagChatMessage
	TagTeamChatMessage
	TagTeamSelect
	TagResourceDownloadRequest
	TagUpdateRateChange
	TagUsernameChange
	TagForwardedCommand
	TagHeartbeatRequest
	tagClientCount
)

// Server-to-client message tags.
const (
	TagServerInfo uint8 = iota
	TagJoined
	TagPleaseSelectTeam
	TagCvarMod
	TagSnapshotFull
	TagSnapshotDelta
	TagResourceDownloadPart
	TagChatBroadcast
	TagServerEventMessage
	TagServerEventMessagePersonal
	TagPlaySoundPositional
	TagPlaySound
	TagPlayerTeamSelected
	TagPlayerClassSelected
	TagHitConfirmed
	TagCommandOutput
	TagCommandError
	tagServerCount
)

// ClientMessage is any message a client sends to the server.
type ClientMessage interface {
	ClientTag() uint8
	encode(w *wire.Writer)
	decode(r *wire.Reader)
}

// ServerMessage is any message the server sends to a client.
type ServerMessage interface {
	ServerTag() uint8
	encode(w *wire.Writer)
	decode(r *wire.Reader)
}

// EncodeClient serializes a client message with its tag byte.
func EncodeClient(m ClientMessage) []byte {
	w := wire.NewWriter(64)
	w.WriteU8(m.ClientTag())
	m.encode(w)
	return w.Bytes()
}

// EncodeServer serializes a server message with its tag byte.
func EncodeServer(m ServerMessage) []byte {
	w := wire.NewWriter(64)
	w.WriteU8(m.ServerTag())
	m.encode(w)
	return w.Bytes()
}

// DecodeClient parses one client-to-server message. The body must consume
// cleanly; trailing garbage or a short read is a payload error.
func DecodeClient(payload []byte) (ClientMessage, error) {
	r := wire.NewReader(payload)
	tag := r.U8()
	if !r.Valid() {
		return nil, ErrBadPayload
	}
	var m ClientMessage
	switch tag {
	case TagServerInfoRequest:
		m = &ServerInfoRequest{}
	case TagJoinRequest:
		m = &JoinRequest{}
	case TagUserCmd:
		m = &UserCmd{}
	case TagChatMessage:
		m = &ChatMessage{}
	case TagTeamChatMessage:
		m = &TeamChatMessage{}
	case TagTeamSelect:
		m = &TeamSelect{}
	case TagResourceDownloadRequest:
		m = &ResourceDownloadRequest{}
	case TagUpdateRateChange:
		m = &UpdateRateChange{}
	case TagUsernameChange:
		m = &UsernameChange{}
	case TagForwardedCommand:
		m = &ForwardedCommand{}
	case TagHeartbeatRequest:
		m = &HeartbeatRequest{}
	default:
		return nil, ErrUnknownTag
	}
	m.decode(r)
	if !r.Valid() || r.Remaining() != 0 {
		return nil, ErrBadPayload
	}
	return m, nil
}

// DecodeServer parses one server-to-client message.
func DecodeServer(payload []byte) (ServerMessage, error) {
	r := wire.NewReader(payload)
	tag := r.U8()
	if !r.Valid() {
		return nil, ErrBadPayload
	}
	var m ServerMessage
	switch tag {
	case TagServerInfo:
		m = &ServerInfo{}
	case TagJoined:
		m = &Joined{}
	case TagPleaseSelectTeam:
		m = &PleaseSelectTeam{}
	case TagCvarMod:
		m = &CvarMod{}
	case TagSnapshotFull:
		m = &SnapshotFull{}
	case TagSnapshotDelta:
		m = &SnapshotDelta{}
	case TagResourceDownloadPart:
		m = &ResourceDownloadPart{}
	case TagChatBroadcast:
		m = &ChatBroadcast{}
	case TagServerEventMessage:
		m = &ServerEventMessage{}
	case TagServerEventMessagePersonal:
		m = &ServerEventMessagePersonal{}
	case TagPlaySoundPositional:
		m = &PlaySoundPositional{}
	case TagPlaySound:
		m = &PlaySound{}
	case TagPlayerTeamSelected:
		m = &PlayerTeamSelected{}
	case TagPlayerClassSelected:
		m = &PlayerClassSelected{}
	case TagHitConfirmed:
		m = &HitConfirmed{}
	case TagCommandOutput:
		m = &CommandOutput{}
	case TagCommandError:
		m = &CommandError{}
	default:
		return nil, ErrUnknownTag
	}
	m.decode(r)
	if !r.Valid() || r.Remaining() != 0 {
		return nil, ErrBadPayload
	}
	return m, nil
}

// ServerInfoRequest asks for the server's info block before joining.
type ServerInfoRequest struct{}

func (*ServerInfoRequest) ClientTag() uint8      { return TagServerInfoRequest }
func (*ServerInfoRequest) encode(*wire.Writer)   {}
func (*ServerInfoRequest) decode(*wire.Reader)   {}

// JoinRequest carries everything the server needs to admit a player.
type JoinRequest struct {
	MapHash        uint32
	GameVersion    string
	Username       string
	UpdateRate     uint32
	PasswordKey    []byte
	InventoryID    uint64
	InventoryToken string
}

func (*JoinRequest) ClientTag() uint8 { return TagJoinRequest }

func (m *JoinRequest) encode(w *wire.Writer) {
	w.WriteU32(m.MapHash)
	w.WriteString(m.GameVersion)
	w.WriteString(m.Username)
	w.WriteU32(m.UpdateRate)
	w.WriteBlob(m.PasswordKey)
	w.WriteU64(m.InventoryID)
	w.WriteString(m.InventoryToken)
}

func (m *JoinRequest) decode(r *wire.Reader) {
	m.MapHash = r.U32()
	m.GameVersion = r.String()
	m.Username = r.String()
	m.UpdateRate = r.U32()
	m.PasswordKey = r.Blob()
	m.InventoryID = r.U64()
	m.InventoryToken = r.String()
}

// UserCmd is the per-tick input from a client plus its snapshot ack.
type UserCmd struct {
	Actions                uint16
	LatestSnapshotReceived uint32
}

func (*UserCmd) ClientTag() uint8 { return TagUserCmd }

func (m *UserCmd) encode(w *wire.Writer) {
	w.WriteU16(m.Actions)
	w.WriteU32(m.LatestSnapshotReceived)
}

func (m *UserCmd) decode(r *wire.Reader) {
	m.Actions = r.U16()
	m.LatestSnapshotReceived = r.U32()
}

// ChatMessage is an all-chat line from a client.
type ChatMessage struct {
	Text string
}

func (*ChatMessage) ClientTag() uint8        { return TagChatMessage }
func (m *ChatMessage) encode(w *wire.Writer) { w.WriteString(m.Text) }
func (m *ChatMessage) decode(r *wire.Reader) { m.Text = r.String() }

// TeamChatMessage is a team-scoped chat line from a client.
type TeamChatMessage struct {
	Text string
}

func (*TeamChatMessage) ClientTag() uint8        { return TagTeamChatMessage }
func (m *TeamChatMessage) encode(w *wire.Writer) { w.WriteString(m.Text) }
func (m *TeamChatMessage) decode(r *wire.Reader) { m.Text = r.String() }

// TeamSelect picks a team and class.
type TeamSelect struct {
	Team  game.Team
	Class game.PlayerClass
}

func (*TeamSelect) ClientTag() uint8 { return TagTeamSelect }

func (m *TeamSelect) encode(w *wire.Writer) {
	m.Team.Encode(w)
	m.Class.Encode(w)
}

func (m *TeamSelect) decode(r *wire.Reader) {
	m.Team = game.DecodeTeam(r)
	m.Class = game.DecodePlayerClass(r)
}

// ResourceDownloadRequest asks for a resource by its name hash.
type ResourceDownloadRequest struct {
	NameHash uint32
}

func (*ResourceDownloadRequest) ClientTag() uint8        { return TagResourceDownloadRequest }
func (m *ResourceDownloadRequest) encode(w *wire.Writer) { w.WriteU32(m.NameHash) }
func (m *ResourceDownloadRequest) decode(r *wire.Reader) { m.NameHash = r.U32() }

// UpdateRateChange declares the client's wanted snapshot rate.
type UpdateRateChange struct {
	UpdateRate uint32
}

func (*UpdateRateChange) ClientTag() uint8        { return TagUpdateRateChange }
func (m *UpdateRateChange) encode(w *wire.Writer) { w.WriteU32(m.UpdateRate) }
func (m *UpdateRateChange) decode(r *wire.Reader) { m.UpdateRate = r.U32() }

// UsernameChange renames the player.
type UsernameChange struct {
	NewUsername string
}

func (*UsernameChange) ClientTag() uint8        { return TagUsernameChange }
func (m *UsernameChange) encode(w *wire.Writer) { w.WriteString(m.NewUsername) }
func (m *UsernameChange) decode(r *wire.Reader) { m.NewUsername = r.String() }

// ForwardedCommand routes a console command to the server. RconToken is
// empty for ordinary player commands and carries the rcon session token
// otherwise.
type ForwardedCommand struct {
	RconToken string
	Command   string
}

func (*ForwardedCommand) ClientTag() uint8 { return TagForwardedCommand }

func (m *ForwardedCommand) encode(w *wire.Writer) {
	w.WriteString(m.RconToken)
	w.WriteString(m.Command)
}

func (m *ForwardedCommand) decode(r *wire.Reader) {
	m.RconToken = r.String()
	m.Command = r.String()
}

// HeartbeatRequest is the meta-server poll.
type HeartbeatRequest struct{}

func (*HeartbeatRequest) ClientTag() uint8    { return TagHeartbeatRequest }
func (*HeartbeatRequest) encode(*wire.Writer) {}
func (*HeartbeatRequest) decode(*wire.Reader) {}

// ResourceInfo is one entry of the downloadable-resource manifest.
type ResourceInfo struct {
	Name        string
	NameHash    uint32
	FileHash    uint32
	Size        uint32
	IsText      bool
	CanDownload bool
}

func (ri *ResourceInfo) encode(w *wire.Writer) {
	w.WriteString(ri.Name)
	w.WriteU32(ri.NameHash)
	w.WriteU32(ri.FileHash)
	w.WriteU32(ri.Size)
	w.WriteBool(ri.IsText)
	w.WriteBool(ri.CanDownload)
}

func (ri *ResourceInfo) decode(r *wire.Reader) {
	ri.Name = r.String()
	ri.NameHash = r.U32()
	ri.FileHash = r.U32()
	ri.Size = r.U32()
	ri.IsText = r.Bool()
	ri.CanDownload = r.Bool()
}

// ServerInfo answers a ServerInfoRequest.
type ServerInfo struct {
	MapName          string
	MapHash          uint32
	TickRate         uint32
	PlayerCount      uint32
	PlayerLimit      uint32
	GameVersion      string
	PasswordSalt     []byte
	PasswordHashType uint8
	Resources        []ResourceInfo
}

func (*ServerInfo) ServerTag() uint8 { return TagServerInfo }

func (m *ServerInfo) encode(w *wire.Writer) {
	w.WriteString(m.MapName)
	w.WriteU32(m.MapHash)
	w.WriteU32(m.TickRate)
	w.WriteU32(m.PlayerCount)
	w.WriteU32(m.PlayerLimit)
	w.WriteString(m.GameVersion)
	w.WriteBlob(m.PasswordSalt)
	w.WriteU8(m.PasswordHashType)
	n := int(wire.SeqLen(len(m.Resources)))
	w.WriteU16(uint16(n))
	for i := 0; i < n; i++ {
		m.Resources[i].encode(w)
	}
}

func (m *ServerInfo) decode(r *wire.Reader) {
	m.MapName = r.String()
	m.MapHash = r.U32()
	m.TickRate = r.U32()
	m.PlayerCount = r.U32()
	m.PlayerLimit = r.U32()
	m.GameVersion = r.String()
	m.PasswordSalt = r.Blob()
	m.PasswordHashType = r.U8()
	n := int(r.U16())
	if !r.Valid() {
		return
	}
	m.Resources = make([]ResourceInfo, 0, n)
	for i := 0; i < n; i++ {
		var ri ResourceInfo
		ri.decode(r)
		if !r.Valid() {
			m.Resources = nil
			return
		}
		m.Resources = append(m.Resources, ri)
	}
	if n == 0 {
		m.Resources = nil
	}
}

// Joined confirms a successful join.
type Joined struct {
	PlayerID       game.PlayerID
	InventoryID    uint64
	InventoryToken string
	MOTD           string
}

func (*Joined) ServerTag() uint8 { return TagJoined }

func (m *Joined) encode(w *wire.Writer) {
	w.WriteU32(uint32(m.PlayerID))
	w.WriteU64(m.InventoryID)
	w.WriteString(m.InventoryToken)
	w.WriteString(m.MOTD)
}

func (m *Joined) decode(r *wire.Reader) {
	m.PlayerID = game.PlayerID(r.U32())
	m.InventoryID = r.U64()
	m.InventoryToken = r.String()
	m.MOTD = r.String()
}

// PleaseSelectTeam prompts the freshly joined client for a team choice.
type PleaseSelectTeam struct{}

func (*PleaseSelectTeam) ServerTag() uint8    { return TagPleaseSelectTeam }
func (*PleaseSelectTeam) encode(*wire.Writer) {}
func (*PleaseSelectTeam) decode(*wire.Reader) {}

// CvarValue is one replicated cvar assignment.
type CvarValue struct {
	Name  string
	Value string
}

// CvarMod pushes replicated cvar values to a client.
type CvarMod struct {
	Cvars []CvarValue
}

func (*CvarMod) ServerTag() uint8 { return TagCvarMod }

func (m *CvarMod) encode(w *wire.Writer) {
	n := int(wire.SeqLen(len(m.Cvars)))
	w.WriteU16(uint16(n))
	for i := 0; i < n; i++ {
		w.WriteString(m.Cvars[i].Name)
		w.WriteString(m.Cvars[i].Value)
	}
}

func (m *CvarMod) decode(r *wire.Reader) {
	n := int(r.U16())
	if !r.Valid() || n == 0 {
		return
	}
	m.Cvars = make([]CvarValue, 0, n)
	for i := 0; i < n; i++ {
		m.Cvars = append(m.Cvars, CvarValue{Name: r.String(), Value: r.String()})
		if !r.Valid() {
			m.Cvars = nil
			return
		}
	}
}

// SnapshotFull carries a complete snapshot.
type SnapshotFull struct {
	Snapshot game.Snapshot
}

func (*SnapshotFull) ServerTag() uint8        { return TagSnapshotFull }
func (m *SnapshotFull) encode(w *wire.Writer) { m.Snapshot.Encode(w) }
func (m *SnapshotFull) decode(r *wire.Reader) { m.Snapshot.Decode(r) }

// SnapshotDelta carries a delta against the snapshot the client last
// acknowledged. Applying it to any other snapshot is a protocol violation.
type SnapshotDelta struct {
	SourceTick uint32
	Data       []byte
}

func (*SnapshotDelta) ServerTag() uint8 { return TagSnapshotDelta }

func (m *SnapshotDelta) encode(w *wire.Writer) {
	w.WriteU32(m.SourceTick)
	w.WriteBlob(m.Data)
}

func (m *SnapshotDelta) decode(r *wire.Reader) {
	m.SourceTick = r.U32()
	m.Data = r.Blob()
}

// ResourceDownloadPart is one chunk of a resource upload.
type ResourceDownloadPart struct {
	NameHash uint32
	Offset   uint32
	Data     []byte
	Final    bool
}

func (*ResourceDownloadPart) ServerTag() uint8 { return TagResourceDownloadPart }

func (m *ResourceDownloadPart) encode(w *wire.Writer) {
	w.WriteU32(m.NameHash)
	w.WriteU32(m.Offset)
	w.WriteBlob(m.Data)
	w.WriteBool(m.Final)
}

func (m *ResourceDownloadPart) decode(r *wire.Reader) {
	m.NameHash = r.U32()
	m.Offset = r.U32()
	m.Data = r.Blob()
	m.Final = r.Bool()
}

// ChatBroadcast relays a chat line to clients. Sender 0 is the server.
type ChatBroadcast struct {
	Sender   game.PlayerID
	TeamOnly bool
	Text     string
}

func (*ChatBroadcast) ServerTag() uint8 { return TagChatBroadcast }

func (m *ChatBroadcast) encode(w *wire.Writer) {
	w.WriteU32(uint32(m.Sender))
	w.WriteBool(m.TeamOnly)
	w.WriteString(m.Text)
}

func (m *ChatBroadcast) decode(r *wire.Reader) {
	m.Sender = game.PlayerID(r.U32())
	m.TeamOnly = r.Bool()
	m.Text = r.String()
}

// ServerEventMessage is a broadcast event line.
type ServerEventMessage struct {
	Text string
}

func (*ServerEventMessage) ServerTag() uint8        { return TagServerEventMessage }
func (m *ServerEventMessage) encode(w *wire.Writer) { w.WriteString(m.Text) }
func (m *ServerEventMessage) decode(r *wire.Reader) { m.Text = r.String() }

// ServerEventMessagePersonal is an event line for one client.
type ServerEventMessagePersonal struct {
	Text string
}

func (*ServerEventMessagePersonal) ServerTag() uint8        { return TagServerEventMessagePersonal }
func (m *ServerEventMessagePersonal) encode(w *wire.Writer) { w.WriteString(m.Text) }
func (m *ServerEventMessagePersonal) decode(r *wire.Reader) { m.Text = r.String() }

// PlaySoundPositional plays a sound at a world position.
type PlaySoundPositional struct {
	Sound    game.SoundID
	Position game.Vec2
}

func (*PlaySoundPositional) ServerTag() uint8 { return TagPlaySoundPositional }

func (m *PlaySoundPositional) encode(w *wire.Writer) {
	m.Sound.Encode(w)
	m.Position.Encode(w)
}

func (m *PlaySoundPositional) decode(r *wire.Reader) {
	m.Sound = game.DecodeSoundID(r)
	m.Position = game.DecodeVec2(r)
}

// PlaySound plays an interface sound.
type PlaySound struct {
	Sound game.SoundID
}

func (*PlaySound) ServerTag() uint8        { return TagPlaySound }
func (m *PlaySound) encode(w *wire.Writer) { m.Sound.Encode(w) }
func (m *PlaySound) decode(r *wire.Reader) { m.Sound = game.DecodeSoundID(r) }

// PlayerTeamSelected announces a team change.
type PlayerTeamSelected struct {
	PlayerID game.PlayerID
	OldTeam  game.Team
	NewTeam  game.Team
}

func (*PlayerTeamSelected) ServerTag() uint8 { return TagPlayerTeamSelected }

func (m *PlayerTeamSelected) encode(w *wire.Writer) {
	w.WriteU32(uint32(m.PlayerID))
	m.OldTeam.Encode(w)
	m.NewTeam.Encode(w)
}

func (m *PlayerTeamSelected) decode(r *wire.Reader) {
	m.PlayerID = game.PlayerID(r.U32())
	m.OldTeam = game.DecodeTeam(r)
	m.NewTeam = game.DecodeTeam(r)
}

// PlayerClassSelected announces a class change.
type PlayerClassSelected struct {
	PlayerID game.PlayerID
	OldClass game.PlayerClass
	NewClass game.PlayerClass
}

func (*PlayerClassSelected) ServerTag() uint8 { return TagPlayerClassSelected }

func (m *PlayerClassSelected) encode(w *wire.Writer) {
	w.WriteU32(uint32(m.PlayerID))
	m.OldClass.Encode(w)
	m.NewClass.Encode(w)
}

func (m *PlayerClassSelected) decode(r *wire.Reader) {
	m.PlayerID = game.PlayerID(r.U32())
	m.OldClass = game.DecodePlayerClass(r)
	m.NewClass = game.DecodePlayerClass(r)
}

// HitConfirmed tells the attacker their shot landed.
type HitConfirmed struct {
	Damage int32
}

func (*HitConfirmed) ServerTag() uint8        { return TagHitConfirmed }
func (m *HitConfirmed) encode(w *wire.Writer) { w.WriteI32(m.Damage) }
func (m *HitConfirmed) decode(r *wire.Reader) { m.Damage = r.I32() }

// CommandOutput streams one line of console command output.
type CommandOutput struct {
	Text string
}

func (*CommandOutput) ServerTag() uint8        { return TagCommandOutput }
func (m *CommandOutput) encode(w *wire.Writer) { w.WriteString(m.Text) }
func (m *CommandOutput) decode(r *wire.Reader) { m.Text = r.String() }

// CommandError streams one line of console command error output.
type CommandError struct {
	Text string
}

func (*CommandError) ServerTag() uint8        { return TagCommandError }
func (m *CommandError) encode(w *wire.Writer) { w.WriteString(m.Text) }
func (m *CommandError) decode(r *wire.Reader) { m.Text = r.String() }
