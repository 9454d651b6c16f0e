package core

// ResultCode mirrors the closed set of terminal flow outcomes from the
// authentication engine. A ResultCode, not an error, is the sole
// cross-component failure channel (§7).
type ResultCode int

const (
	ResultPending ResultCode = iota
	ResultSuccess
	ResultUserDoesntExist
	ResultUserExists
	ResultPasswordFailure
	ResultPublicUsernameExists
	ResultAuthenticationError
	ResultGeneralError
	ResultKeyUnique
	ResultNack
	ResultAck
)

func (r ResultCode) String() string {
	switch r {
	case ResultPending:
		return "kPendingResult"
	case ResultSuccess:
		return "kSuccess"
	case ResultUserDoesntExist:
		return "kUserDoesntExist"
	case ResultUserExists:
		return "kUserExists"
	case ResultPasswordFailure:
		return "kPasswordFailure"
	case ResultPublicUsernameExists:
		return "kPublicUsernameExists"
	case ResultAuthenticationError:
		return "kAuthenticationError"
	case ResultGeneralError:
		return "kGeneralError"
	case ResultKeyUnique:
		return "kKeyUnique"
	case ResultNack:
		return "kNack"
	case ResultAck:
		return "kAck"
	default:
		return "kUnknown"
	}
}

// StorePolicy governs the server-side conflict rule for StorePacket.
type StorePolicy int

const (
	PolicyDoNothingReturnFailure StorePolicy = iota
	PolicyAppend
	PolicyOverwrite
)

// NoOfSystemPackets is the system-packet count named by §6's configuration
// option of the same name. CreateUserSysPackets returns success once its
// eight-link chain is stored; it compares its link count with this constant
// only to emit a debug log line, so the constant does not gate success.
const NoOfSystemPackets = 9

// PacketKind is the closed enumeration of packet types from §3.
type PacketKind int

const (
	KindANMID PacketKind = iota
	KindANSMID
	KindANTMID
	KindANMAID
	KindANMPID
	KindMID
	KindSMID
	KindTMID
	KindMAID
	KindPMID
	KindMPID
	KindMSID
)

func (k PacketKind) String() string {
	switch k {
	case KindANMID:
		return "ANMID"
	case KindANSMID:
		return "ANSMID"
	case KindANTMID:
		return "ANTMID"
	case KindANMAID:
		return "ANMAID"
	case KindANMPID:
		return "ANMPID"
	case KindMID:
		return "MID"
	case KindSMID:
		return "SMID"
	case KindTMID:
		return "TMID"
	case KindMAID:
		return "MAID"
	case KindPMID:
		return "PMID"
	case KindMPID:
		return "MPID"
	case KindMSID:
		return "MSID"
	default:
		return "UNKNOWN"
	}
}

// signerOf encodes the fixed signer mapping of §3: anonymous kinds
// self-sign, MAID signs PMID, and each ANx kind signs its named
// counterpart.
var signerOf = map[PacketKind]PacketKind{
	KindANMID:  KindANMID,
	KindANSMID: KindANSMID,
	KindANTMID: KindANTMID,
	KindANMAID: KindANMAID,
	KindANMPID: KindANMPID,
	KindMID:    KindANMID,
	KindSMID:   KindANSMID,
	KindTMID:   KindANTMID,
	KindMAID:   KindANMAID,
	KindPMID:   KindMAID,
	KindMPID:   KindANMPID,
}
