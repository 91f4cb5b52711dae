package entities

// ExpansionInterface is the bus used to reach the expansion board.
type ExpansionInterface string

const (
	InterfaceI2C   ExpansionInterface = "i2c"
	InterfaceRS485 ExpansionInterface = "rs485"
	InterfaceUART  ExpansionInterface = "uart"
)

// MaxExpansionMotors is the number of extra channels an expansion board can drive.
const MaxExpansionMotors = 4

// ExpansionAddress is the bus address reported while the board is connected.
const ExpansionAddress = 0x2A

func (i ExpansionInterface) Valid() bool {
	switch i {
	case InterfaceI2C, InterfaceRS485, InterfaceUART:
		return true
	}
	return false
}

// Expansion describes the (simulated) expansion board.
type Expansion struct {
	Enabled    bool               `json:"enabled"`
	Interface  ExpansionInterface `json:"interface"`
	MotorCount int                `json:"motorCount"`
}

// ActiveMotorCount returns the number of addressable virtual motors.
func (e Expansion) ActiveMotorCount() int {
	if !e.Enabled {
		return 1
	}
	n := e.MotorCount
	if n < 0 {
		n = 0
	}
	if n > MaxExpansionMotors {
		n = MaxExpansionMotors
	}
	return 1 + n
}
