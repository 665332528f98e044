package sb9600

// Address is an SB9600 module address.
type Address byte

const (
	AddrBroadcast  Address = 0x00
	AddrRadio      Address = 0x01
	AddrDSP        Address = 0x02
	AddrMPL        Address = 0x03
	AddrIntOptions Address = 0x04
	AddrFrontPanel Address = 0x05
	AddrRearPanel  Address = 0x06
	AddrExtPanel   Address = 0x07
	AddrSirenPA    Address = 0x08
	AddrSecureNet  Address = 0x09
	AddrEmergency  Address = 0x0A
	AddrSelCall    Address = 0x0B
	AddrMDC600     Address = 0x0C
	AddrMVS        Address = 0x0D
	AddrPhone      Address = 0x0E
	AddrDTMF       Address = 0x0F
	AddrTrunkSys   Address = 0x10
	AddrTrunkOpt   Address = 0x11
	AddrVRS        Address = 0x12
	AddrSpRpt      Address = 0x13
	AddrSingleTone Address = 0x14
	AddrVehicleLoc Address = 0x16
	AddrKDTTerm    Address = 0x17
	AddrTrunkDesk  Address = 0x18
	AddrMetrocom   Address = 0x19
	AddrCtrlHost   Address = 0x1A
	AddrVehicleAdp Address = 0x1B
)

var addressNames = map[Address]string{
	AddrBroadcast:  "BROADCAST",
	AddrRadio:      "RADIO",
	AddrDSP:        "DSP",
	AddrMPL:        "MPL",
	AddrIntOptions: "INTOPTIONS",
	AddrFrontPanel: "FRONTPANEL",
	AddrRearPanel:  "REARPANEL",
	AddrExtPanel:   "EXTPANEL",
	AddrSirenPA:    "SIREN_PA",
	AddrSecureNet:  "SECURENET",
	AddrEmergency:  "EMGCY_STAT",
	AddrSelCall:    "MSG_SELCALL",
	AddrMDC600:     "MDC600CALL",
	AddrMVS:        "MVS",
	AddrPhone:      "PHONE",
	AddrDTMF:       "DTMF",
	AddrTrunkSys:   "TRNK_SYS",
	AddrTrunkOpt:   "TRNK_OPT",
	AddrVRS:        "VRS",
	AddrSpRpt:      "SP_RPT",
	AddrSingleTone: "SINGLETONE",
	AddrVehicleLoc: "VEHICLE_LOC",
	AddrKDTTerm:    "KDT_TERM",
	AddrTrunkDesk:  "TRNK_DESK",
	AddrMetrocom:   "METROCOM",
	AddrCtrlHost:   "CTRL_HOST",
	AddrVehicleAdp: "VEHICLE_ADP",
}

func (a Address) String() string {
	if name, ok := addressNames[a]; ok {
		return name
	}
	return "UNKNOWN"
}

// Opcode is an SB9600 link-layer opcode.
type Opcode byte

const (
	OpEPREQ  Opcode = 0x06 // expanded protocol request
	OpReset  Opcode = 0x08
	OpSETBUT Opcode = 0x0A
	OpRADRDY Opcode = 0x15
	OpRADKEY Opcode = 0x19
	OpRXAUD  Opcode = 0x1A
	OpTXAUD  Opcode = 0x1B
	OpAUDMUT Opcode = 0x1D
	OpSQLDET Opcode = 0x1E
	OpACTMDU Opcode = 0x1F
	OpPLDECT Opcode = 0x23
	OpPRUPST Opcode = 0x3B
	OpDISPLY Opcode = 0x3C
	OpBUTCTL Opcode = 0x57
	OpLUMCTL Opcode = 0x58
)

var opcodeNames = map[Opcode]string{
	OpEPREQ:  "EPREQ",
	OpReset:  "RESET",
	OpSETBUT: "SETBUT",
	OpRADRDY: "RADRDY",
	OpRADKEY: "RADKEY",
	OpRXAUD:  "RXAUD",
	OpTXAUD:  "TXAUD",
	OpAUDMUT: "AUDMUT",
	OpSQLDET: "SQLDET",
	OpACTMDU: "ACTMDU",
	OpPLDECT: "PLDECT",
	OpPRUPST: "PRUPST",
	OpDISPLY: "DISPLY",
	OpBUTCTL: "BUTCTL",
	OpLUMCTL: "LUMCTL",
}

func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return "UNKNOWN"
}

// SBEP opcodes.
const (
	SBEPReserved  byte = 0x00
	SBEPDisplay   byte = 0x01
	SBEPRFTest    byte = 0x02
	SBEPVirtual   byte = 0x03
	SBEPAck       byte = 0x05
	SBEPNack      byte = 0x06
	SBEPExtended  byte = 0x0F
	SBEPIndicator byte = 0x21
)

// AckByte is the bare SBEP acknowledgement that may surround an expanded message.
const AckByte byte = 0x50

// EPREQ data[0] layout.
const (
	EPREQProtocolSBEP byte = 0x01
	EPREQBaud9600     byte = 0x02
)

// ResetFrame returns the broadcast reset command.
func ResetFrame() Frame {
	return Frame{Address: AddrBroadcast, Data: [2]byte{0x00, 0x01}, Opcode: OpReset}
}

// ButtonFrame returns a front panel button event for code.
func ButtonFrame(code byte, pressed bool) Frame {
	state := byte(0x00)
	if pressed {
		state = 0x01
	}
	return Frame{Address: AddrFrontPanel, Data: [2]byte{code, state}, Opcode: OpBUTCTL}
}
