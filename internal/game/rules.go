package game

// Rules are the gameplay tunables the cvar layer exposes. The server binds
// each mp_* cvar to a field so changes apply on the next tick.
type Rules struct {
	PlayerLimit int

	RespawnTime              float64
	RoundEndTime             float64
	RoundTime                float64
	RoundLimit               int
	WinLimit                 int
	TimeLimit                float64
	SwitchTeamsBetweenRounds bool

	ScoreKill      int32
	ScoreObjective int32
	CaptureLimit   int32

	SelfDamageCoefficient     float64
	SpyBackstabRange          int16
	ExplosionDisappearTime    float64
	ShotgunSpread             int
	SniperRange               int16
	OverhealCap               float64
	StickyLimit               int
	SentryHealth              int32
	SentryRange               int16
	SentryDespawnTime         float64
	MedkitRespawnTime         float64
	AmmopackRespawnTime       float64
	FlagReturnTime            float64
	PayloadPushTime           float64
	BlastJumpMoveInterval     float64
	BlastJumpDuration         float64
	BlastJumpChainCoefficient float64
}

// DefaultRules returns the stock gameplay constants.
func DefaultRules() Rules {
	return Rules{
		PlayerLimit: 32,

		RespawnTime:              5,
		RoundEndTime:             10,
		RoundTime:                300,
		RoundLimit:               0,
		WinLimit:                 0,
		TimeLimit:                0,
		SwitchTeamsBetweenRounds: true,

		ScoreKill:      1,
		ScoreObjective: 2,
		CaptureLimit:   3,

		SelfDamageCoefficient:     0.5,
		SpyBackstabRange:          1,
		ExplosionDisappearTime:    0.25,
		ShotgunSpread:             5,
		SniperRange:               40,
		OverhealCap:               1.5,
		StickyLimit:               8,
		SentryHealth:              150,
		SentryRange:               12,
		SentryDespawnTime:         3,
		MedkitRespawnTime:         10,
		AmmopackRespawnTime:       10,
		FlagReturnTime:            60,
		PayloadPushTime:           1.5,
		BlastJumpMoveInterval:     0.04,
		BlastJumpDuration:         0.6,
		BlastJumpChainCoefficient: 1.5,
	}
}
