package protocol

import (
	"reflect"
	"testing"

	"gridfort/internal/game"
)

// TestClientMessageRoundTrip verifies every client message survives
// encode/decode.
func TestClientMessageRoundTrip(t *testing.T) {
	msgs := []ClientMessage{
		&ServerInfoRequest{},
		&JoinRequest{
			MapHash:        0xdeadbeef,
			GameVersion:    "1.0",
			Username:       "Alice",
			UpdateRate:     20,
			PasswordKey:    []byte{1, 2, 3},
			InventoryID:    42,
			InventoryToken: "tok",
		},
		&UserCmd{Actions: 0x01ff, LatestSnapshotReceived: 1234},
		&ChatMessage{Text: "hello"},
		&TeamChatMessage{Text: "incoming left"},
		&TeamSelect{Team: game.TeamBlue, Class: game.ClassMedic},
		&ResourceDownloadRequest{NameHash: 99},
		&UpdateRateChange{UpdateRate: 30},
		&UsernameChange{NewUsername: "Bob"},
		&ForwardedCommand{RconToken: "abc", Command: "status"},
		&HeartbeatRequest{},
	}
	for _, m := range msgs {
		t.Run(reflect.TypeOf(m).Elem().Name(), func(t *testing.T) {
			got, err := DecodeClient(EncodeClient(m))
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, m) {
				t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, m)
			}
		})
	}
}

// TestServerMessageRoundTrip verifies every server message survives
// encode/decode.
func TestServerMessageRoundTrip(t *testing.T) {
	msgs := []ServerMessage{
		&ServerInfo{
			MapName:          "ctf_well",
			MapHash:          7,
			TickRate:         64,
			PlayerCount:      3,
			PlayerLimit:      32,
			GameVersion:      "1.0",
			PasswordSalt:     []byte{9, 8, 7},
			PasswordHashType: 1,
			Resources: []ResourceInfo{
				{Name: "map/ctf_well", NameHash: 1, FileHash: 2, Size: 3, IsText: true, CanDownload: true},
			},
		},
		&Joined{PlayerID: 1, InventoryID: 5, InventoryToken: "t", MOTD: "hi"},
		&PleaseSelectTeam{},
		&CvarMod{Cvars: []CvarValue{{Name: "mp_winlimit", Value: "3"}}},
		&SnapshotFull{Snapshot: game.Snapshot{TickCount: 12, RoundSecondsLeft: 90}},
		&SnapshotDelta{SourceTick: 11, Data: []byte{0, 1, 2}},
		&ResourceDownloadPart{NameHash: 1, Offset: 512, Data: []byte{4, 5}, Final: true},
		&ChatBroadcast{Sender: 2, TeamOnly: true, Text: "go left"},
		&ServerEventMessage{Text: "RED team wins the round!"},
		&ServerEventMessagePersonal{Text: "you are it"},
		&PlaySoundPositional{Sound: game.SoundExplosion, Position: game.Vec2{X: 4, Y: 5}},
		&PlaySound{Sound: game.SoundVictory},
		&PlayerTeamSelected{PlayerID: 3, OldTeam: game.TeamSpectators, NewTeam: game.TeamRed},
		&PlayerClassSelected{PlayerID: 3, OldClass: game.ClassSpectator, NewClass: game.ClassPyro},
		&HitConfirmed{Damage: 45},
		&CommandOutput{Text: "ok"},
		&CommandError{Text: "no"},
	}
	for _, m := range msgs {
		t.Run(reflect.TypeOf(m).Elem().Name(), func(t *testing.T) {
			got, err := DecodeServer(EncodeServer(m))
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, m) {
				t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, m)
			}
		})
	}
}

// TestDecodeRejectsUnknownTag verifies unknown tags map to the dedicated
// error so the connection can count them.
func TestDecodeRejectsUnknownTag(t *testing.T) {
	if _, err := DecodeClient([]byte{0xfe}); err != ErrUnknownTag {
		t.Fatalf("err = %v, want ErrUnknownTag", err)
	}
	if _, err := DecodeServer([]byte{0xfe}); err != ErrUnknownTag {
		t.Fatalf("err = %v, want ErrUnknownTag", err)
	}
}

// TestDecodeRejectsTrailingBytes verifies a body that does not consume
// fully is a payload error.
func TestDecodeRejectsTrailingBytes(t *testing.T) {
	payload := append(EncodeClient(&UserCmd{Actions: 1}), 0xff)
	if _, err := DecodeClient(payload); err != ErrBadPayload {
		t.Fatalf("err = %v, want ErrBadPayload", err)
	}
}

// TestDecodeRejectsShortBody verifies truncated bodies are payload
// errors.
func TestDecodeRejectsShortBody(t *testing.T) {
	payload := EncodeClient(&JoinRequest{Username: "Alice"})
	if _, err := DecodeClient(payload[:len(payload)-2]); err != ErrBadPayload {
		t.Fatalf("err = %v, want ErrBadPayload", err)
	}
}

// TestDecodeRejectsBadEnum verifies out-of-range enum bytes invalidate
// the message.
func TestDecodeRejectsBadEnum(t *testing.T) {
	payload := EncodeClient(&TeamSelect{Team: game.TeamRed, Class: game.ClassScout})
	payload[1] = 0x7f // team byte out of range
	if _, err := DecodeClient(payload); err != ErrBadPayload {
		t.Fatalf("err = %v, want ErrBadPayload", err)
	}
}
