package peripheral

import "fmt"

const (
	NumMailboxes = 3
	FifoDepth    = 3
)

// One of the three transmit mailboxes
type Mailbox uint8

const (
	Mailbox0 Mailbox = 0
	Mailbox1 Mailbox = 1
	Mailbox2 Mailbox = 2
)

func (m Mailbox) String() string {
	return fmt.Sprintf("MB%d", uint8(m))
}

// One of the two receive FIFOs
type Fifo uint8

const (
	Fifo0 Fifo = 0
	Fifo1 Fifo = 1
)

func (f Fifo) String() string {
	return fmt.Sprintf("FIFO%d", uint8(f))
}

// Error status flags
type ErrorFlags uint8

const (
	ErrorWarning ErrorFlags = 0x01 // bit 0 - error warning limit reached
	ErrorPassive ErrorFlags = 0x02 // bit 1 - error passive
	BusOff       ErrorFlags = 0x04 // bit 2 - bus off
)

// Last error code, as reported in the error status register
type LastErrorCode uint8

const (
	LecNoError      LastErrorCode = 0
	LecStuff        LastErrorCode = 1
	LecForm         LastErrorCode = 2
	LecAcknowledge  LastErrorCode = 3
	LecBitRecessive LastErrorCode = 4
	LecBitDominant  LastErrorCode = 5
	LecCrc          LastErrorCode = 6
)

var lecDescriptionMap = map[LastErrorCode]string{
	LecNoError:      "No Error",
	LecStuff:        "Stuff Error",
	LecForm:         "Form Error",
	LecAcknowledge:  "Acknowledgment Error",
	LecBitRecessive: "Bit recessive Error",
	LecBitDominant:  "Bit dominant Error",
	LecCrc:          "CRC Error",
}

func (lec LastErrorCode) String() string {
	description, ok := lecDescriptionMap[lec]
	if !ok {
		return "Set by software"
	}
	return description
}
