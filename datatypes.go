package integro

// Object dictionary data types as numeric codes from ETG.1020
type ObjectDataType uint16

const (
	UNSPECIFIED ObjectDataType = 0x0000

	BOOLEAN ObjectDataType = 0x0001
	BYTE    ObjectDataType = 0x001E
	WORD    ObjectDataType = 0x001F
	DWORD   ObjectDataType = 0x0020

	BIT1  ObjectDataType = 0x0030
	BIT2  ObjectDataType = 0x0031
	BIT3  ObjectDataType = 0x0032
	BIT4  ObjectDataType = 0x0033
	BIT5  ObjectDataType = 0x0034
	BIT6  ObjectDataType = 0x0035
	BIT7  ObjectDataType = 0x0036
	BIT8  ObjectDataType = 0x0037
	BIT9  ObjectDataType = 0x0038
	BIT10 ObjectDataType = 0x0039
	BIT11 ObjectDataType = 0x003A
	BIT12 ObjectDataType = 0x003B
	BIT13 ObjectDataType = 0x003C
	BIT14 ObjectDataType = 0x003D
	BIT15 ObjectDataType = 0x003E
	BIT16 ObjectDataType = 0x003F

	BITARR8  ObjectDataType = 0x002D
	BITARR16 ObjectDataType = 0x002E
	BITARR32 ObjectDataType = 0x002F

	INTEGER8  ObjectDataType = 0x0002
	INTEGER16 ObjectDataType = 0x0003
	INTEGER24 ObjectDataType = 0x0010
	INTEGER32 ObjectDataType = 0x0004
	INTEGER40 ObjectDataType = 0x0012
	INTEGER48 ObjectDataType = 0x0013
	INTEGER56 ObjectDataType = 0x0014
	INTEGER64 ObjectDataType = 0x0015

	UNSIGNED8  ObjectDataType = 0x0005
	UNSIGNED16 ObjectDataType = 0x0006
	UNSIGNED24 ObjectDataType = 0x0016
	UNSIGNED32 ObjectDataType = 0x0007
	UNSIGNED40 ObjectDataType = 0x0018
	UNSIGNED48 ObjectDataType = 0x0019
	UNSIGNED56 ObjectDataType = 0x001A
	UNSIGNED64 ObjectDataType = 0x001B

	REAL32 ObjectDataType = 0x0008
	REAL64 ObjectDataType = 0x0011

	GUID ObjectDataType = 0x001D

	VISIBLE_STRING ObjectDataType = 0x0009
	OCTET_STRING   ObjectDataType = 0x000A
	UNICODE_STRING ObjectDataType = 0x000B

	ARRAY_OF_INT   ObjectDataType = 0x0260
	ARRAY_OF_SINT  ObjectDataType = 0x0261
	ARRAY_OF_DINT  ObjectDataType = 0x0262
	ARRAY_OF_UDINT ObjectDataType = 0x0263

	PDO_MAPPING              ObjectDataType = 0x0021
	IDENTITY                 ObjectDataType = 0x0023
	COMMAND_PAR              ObjectDataType = 0x0025
	PDO_PARAMETER            ObjectDataType = 0x0027
	ENUM                     ObjectDataType = 0x0028
	SM_SYNCHRONIZATION       ObjectDataType = 0x0029
	RECORD                   ObjectDataType = 0x002A
	BACKUP_PARAMETER         ObjectDataType = 0x002B
	MODULAR_DEVICE_PARAMETER ObjectDataType = 0x002C
	ERROR_SETTING            ObjectDataType = 0x0281
	DIAGNOSIS_HISTORY        ObjectDataType = 0x0282
	EXTERNAL_SYNC_STATUS     ObjectDataType = 0x0283
	EXTERNAL_SYNC_SETTINGS   ObjectDataType = 0x0284
	DEFTYPE_FSOEFRAME        ObjectDataType = 0x0285
	DEFTYPE_FSOECOMMPAR      ObjectDataType = 0x0286

	TIME_OF_DAY     ObjectDataType = 0x000C
	TIME_DIFFERENCE ObjectDataType = 0x000D
	UTYPE_START     ObjectDataType = 0x0800
	UTYPE_END       ObjectDataType = 0x0FFF
)

// Object dictionary object codes
type ObjectCode uint16

const (
	OBJ_DEFTYPE   ObjectCode = 0x0005
	OBJ_DEFSTRUCT ObjectCode = 0x0006
	OBJ_VAR       ObjectCode = 0x0007
	OBJ_ARR       ObjectCode = 0x0008
	OBJ_RECORD    ObjectCode = 0x0009
)

// Object flags, also used for access rights per EtherCAT state
type ObjectFlags uint16

const (
	FLAG_NONE ObjectFlags = 0x0000

	FLAG_PO_RD  ObjectFlags = 0x0001
	FLAG_SO_RD  ObjectFlags = 0x0002
	FLAG_OP_RD  ObjectFlags = 0x0004
	FLAG_ALL_RD ObjectFlags = FLAG_PO_RD | FLAG_SO_RD | FLAG_OP_RD

	FLAG_PO_WR  ObjectFlags = 0x0008
	FLAG_SO_WR  ObjectFlags = 0x0010
	FLAG_OP_WR  ObjectFlags = 0x0020
	FLAG_ALL_WR ObjectFlags = FLAG_PO_WR | FLAG_SO_WR | FLAG_OP_WR

	FLAG_PO_RDWR  ObjectFlags = FLAG_PO_RD | FLAG_PO_WR
	FLAG_SO_RDWR  ObjectFlags = FLAG_SO_RD | FLAG_SO_WR
	FLAG_OP_RDWR  ObjectFlags = FLAG_OP_RD | FLAG_OP_WR
	FLAG_ALL_RDWR ObjectFlags = FLAG_PO_RDWR | FLAG_SO_RDWR | FLAG_OP_RDWR

	FLAG_RXPDO_MAP   ObjectFlags = 0x0040
	FLAG_TXPDO_MAP   ObjectFlags = 0x0080
	FLAG_RXTXPDO_MAP ObjectFlags = FLAG_RXPDO_MAP | FLAG_TXPDO_MAP

	FLAG_BACKUP  ObjectFlags = 0x0100
	FLAG_STARTUP ObjectFlags = 0x0200

	FLAG_ALL_LIST ObjectFlags = FLAG_RXPDO_MAP | FLAG_TXPDO_MAP | FLAG_BACKUP | FLAG_STARTUP
)

// Has returns true if all bits of other are set in flags
func (flags ObjectFlags) Has(other ObjectFlags) bool {
	return flags&other == other
}

// EtherCAT state machine states as single byte codes
const (
	STATE_INIT   uint8 = 1
	STATE_PREOP  uint8 = 2
	STATE_BOOT   uint8 = 3
	STATE_SAFEOP uint8 = 4
	STATE_OP     uint8 = 8
)

var stateNames = map[uint8]string{
	STATE_INIT:   "INIT",
	STATE_PREOP:  "PREOP",
	STATE_BOOT:   "BOOT",
	STATE_SAFEOP: "SAFEOP",
	STATE_OP:     "OP",
}

// StateName returns a readable name for an EtherCAT state code
func StateName(state uint8) string {
	name, ok := stateNames[state]
	if !ok {
		return "UNKNOWN"
	}
	return name
}
