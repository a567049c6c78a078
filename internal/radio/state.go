package radio

// State is the radio bring-up/operation state machine's current
// state. Values below 0x80 are the normal bring-up sequence; values
// at or above 0x80 are terminal error states.
type State uint8

const (
	Disabled     State = 0x00
	Resetting    State = 0x01
	Initializing State = 0x02
	Ready        State = 0x03

	Error        State = 0x80
	DevNotFound  State = 0x81
	DevOpenFail  State = 0x82
	InitTimeout  State = 0x83
	ComTimeout   State = 0x84
	WrongFw      State = 0x85
)

// IsTerminal reports whether s is one of the terminal error states
// that only init() can leave.
func (s State) IsTerminal() bool {
	return s >= Error
}

func (s State) String() string {
	switch s {
	case Disabled:
		return "Disabled"
	case Resetting:
		return "Resetting"
	case Initializing:
		return "Initializing"
	case Ready:
		return "Ready"
	case Error:
		return "Error"
	case DevNotFound:
		return "DevNotFound"
	case DevOpenFail:
		return "DevOpenFail"
	case InitTimeout:
		return "InitTimeout"
	case ComTimeout:
		return "ComTimeout"
	case WrongFw:
		return "WrongFw"
	default:
		return "Unknown"
	}
}
