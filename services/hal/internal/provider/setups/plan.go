package setups

// ResourcePlan specifies wiring chosen for a board. Providers consume this
// plan to instantiate resource owners.
type ResourcePlan struct {
	GPIOCount int      // pins 0..GPIOCount-1 may be claimed
	Wire      WirePlan // primary SeeLevel select/response pair
	Console   UARTPlan
}

type WirePlan struct {
	Select   int // GPIO driving select/power
	Response int // GPIO reading the sensor response
}

type UARTPlan struct {
	ID   string // e.g. "uart1"
	TX   int    // GPIO number
	RX   int    // GPIO number
	Baud uint32
}

// PicoTank is the Raspberry Pi Pico wiring: sensor pair on GP0/GP1 and the
// console moved to UART1 on GP4/GP5 to keep them clear.
var PicoTank = ResourcePlan{
	GPIOCount: 30,
	Wire:      WirePlan{Select: 0, Response: 1},
	Console:   UARTPlan{ID: "uart1", TX: 4, RX: 5, Baud: 115_200},
}
