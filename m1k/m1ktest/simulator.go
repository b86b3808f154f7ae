package m1ktest

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/jmball/go-m1k/pylit"
)

// Simulator is an in-memory SMU implementing the m1k command vocabulary, so
// clients can be exercised without hardware. Its Handle method satisfies
// Handler.
//
// Per-channel state lives in a concurrent map since the server handles each
// exchange on its own goroutine.
type Simulator struct {
	mu sync.RWMutex

	plf           float64
	nplc          float64
	settlingDelay float64

	numBoards   int
	chPerBoard  int
	bufSize     int
	sampleRate  int
	sweepValues map[int][]float64

	channels *xsync.MapOf[int, *channelState]
}

type channelState struct {
	mu sync.Mutex

	serial   string
	dcValue  float64
	fourWire bool
	vRange   float64
	enabled  bool
	leds     [3]bool
}

// NewSimulator creates a simulator with the given board topology.
func NewSimulator(numBoards, chPerBoard int) *Simulator {
	sim := &Simulator{
		plf:         50,
		nplc:        1,
		numBoards:   numBoards,
		chPerBoard:  chPerBoard,
		bufSize:     100_000,
		sampleRate:  100_000,
		sweepValues: map[int][]float64{},
		channels:    xsync.NewMapOf[int, *channelState](),
	}

	for ch := range numBoards * chPerBoard {
		sim.channels.Store(ch, &channelState{
			serial: fmt.Sprintf("2041990%04d", ch),
			vRange: 5,
		})
	}

	return sim
}

// NumChannels returns the number of simulated channels.
func (sim *Simulator) NumChannels() int {
	return sim.numBoards * sim.chPerBoard
}

// Handle decodes one command line and produces its reply line.
// Unknown or malformed commands get an "ERROR"-prefixed reply, matching the
// server's protocol error sentinel.
func (sim *Simulator) Handle(cmd string) string {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return "ERROR: empty command"
	}

	switch fields[0] {
	case "rst":
		return sim.reset()
	case "plf":
		return sim.handlePLF(fields[1:])
	case "cpb":
		return strconv.Itoa(sim.chPerBoard)
	case "buf":
		return strconv.Itoa(sim.bufSize)
	case "chs":
		return strconv.Itoa(sim.NumChannels())
	case "bds":
		return strconv.Itoa(sim.numBoards)
	case "sr":
		return strconv.Itoa(sim.sampleRate)
	case "set":
		return sim.settings()
	case "nplc":
		return sim.handleScalar(&sim.nplc, fields[1:])
	case "sd":
		return sim.handleScalar(&sim.settlingDelay, fields[1:])
	case "idn":
		return sim.handleIDN(fields[1:])
	case "cal":
		return sim.handleCal(fields[1:])
	case "fw":
		return sim.handleFourWire(fields[1:])
	case "vr":
		return sim.handleVoltageRange(fields[1:])
	case "def":
		return sim.handleDefaults(fields[1:])
	case "swe":
		return sim.handleSweep(fields[1:])
	case "lst":
		return sim.handleListSweep(fields[1:])
	case "dc":
		return sim.handleDC(fields[1:])
	case "meas":
		return sim.handleMeasure(fields[1:])
	case "eo":
		return sim.handleEnableOutput(fields[1:])
	case "led":
		return sim.handleLEDs(fields[1:])
	default:
		return fmt.Sprintf("ERROR: unknown command %q", fields[0])
	}
}

func (sim *Simulator) reset() string {
	sim.mu.Lock()
	sim.nplc = 1
	sim.settlingDelay = 0
	sim.sweepValues = map[int][]float64{}
	sim.mu.Unlock()

	sim.channels.Range(func(_ int, ch *channelState) bool {
		ch.mu.Lock()
		ch.dcValue = 0
		ch.fourWire = false
		ch.vRange = 5
		ch.enabled = false
		ch.leds = [3]bool{}
		ch.mu.Unlock()
		return true
	})

	return ""
}

func (sim *Simulator) handlePLF(args []string) string {
	if len(args) == 0 {
		sim.mu.RLock()
		defer sim.mu.RUnlock()
		return pylit.FormatFloat(sim.plf)
	}

	val, err := strconv.ParseFloat(args[0], 64)
	if err != nil || val <= 0 {
		return fmt.Sprintf("ERROR: invalid power line frequency %q", args[0])
	}

	sim.mu.Lock()
	sim.plf = val
	sim.mu.Unlock()
	return ""
}

func (sim *Simulator) handleScalar(field *float64, args []string) string {
	if len(args) == 0 {
		sim.mu.RLock()
		defer sim.mu.RUnlock()
		return pylit.FormatFloat(*field)
	}

	val, err := strconv.ParseFloat(args[0], 64)
	if err != nil || val < 0 {
		return fmt.Sprintf("ERROR: invalid value %q", args[0])
	}

	sim.mu.Lock()
	*field = val
	sim.mu.Unlock()
	return ""
}

func (sim *Simulator) settings() string {
	set := map[int]map[string]any{}
	sim.channels.Range(func(idx int, ch *channelState) bool {
		ch.mu.Lock()
		set[idx] = map[string]any{
			"four_wire": ch.fourWire,
			"v_range":   ch.vRange,
			"dc_value":  ch.dcValue,
			"enabled":   ch.enabled,
		}
		ch.mu.Unlock()
		return true
	})

	return pylit.Format(set)
}

func (sim *Simulator) handleIDN(args []string) string {
	if len(args) == 0 {
		return fmt.Sprintf("m1k-sim boards %d channels %d", sim.numBoards, sim.NumChannels())
	}

	idx, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Sprintf("ERROR: invalid channel %q", args[0])
	}
	ch, ok := sim.channels.Load(idx)
	if !ok {
		return fmt.Sprintf("ERROR: channel %d does not exist", idx)
	}
	return ch.serial
}

func (sim *Simulator) handleCal(args []string) string {
	if len(args) != 2 || (args[0] != "ext" && args[0] != "int") {
		return "ERROR: usage: cal {ext|int} {channel|None}"
	}

	return sim.forEachSelected(args[1], func(*channelState) {})
}

func (sim *Simulator) handleFourWire(args []string) string {
	if len(args) != 2 {
		return "ERROR: usage: fw {0|1} {channel|None}"
	}

	enable := args[0] == "1"
	return sim.forEachSelected(args[1], func(ch *channelState) {
		ch.fourWire = enable
	})
}

func (sim *Simulator) handleVoltageRange(args []string) string {
	if len(args) != 2 {
		return "ERROR: usage: vr {2.5|5} {channel|None}"
	}

	vr, err := strconv.ParseFloat(args[0], 64)
	if err != nil || (vr != 2.5 && vr != 5) {
		return fmt.Sprintf("ERROR: invalid voltage range %q", args[0])
	}
	return sim.forEachSelected(args[1], func(ch *channelState) {
		ch.vRange = vr
	})
}

func (sim *Simulator) handleDefaults(args []string) string {
	if len(args) != 2 {
		return "ERROR: usage: def {0|1} {channel|None}"
	}

	if args[0] != "1" {
		return ""
	}
	return sim.forEachSelected(args[1], func(ch *channelState) {
		ch.dcValue = 0
		ch.fourWire = false
		ch.vRange = 5
		ch.enabled = false
	})
}

func (sim *Simulator) handleSweep(args []string) string {
	if len(args) != 4 {
		return "ERROR: usage: swe {start} {stop} {points} {v|i}"
	}

	start, err1 := strconv.ParseFloat(args[0], 64)
	stop, err2 := strconv.ParseFloat(args[1], 64)
	points, err3 := strconv.Atoi(args[2])
	if err1 != nil || err2 != nil || err3 != nil || points < 2 {
		return "ERROR: invalid sweep parameters"
	}

	values := make([]float64, points)
	step := (stop - start) / float64(points-1)
	for i := range values {
		values[i] = start + float64(i)*step
	}

	sweep := map[int][]float64{}
	sim.channels.Range(func(idx int, _ *channelState) bool {
		sweep[idx] = values
		return true
	})

	sim.mu.Lock()
	sim.sweepValues = sweep
	sim.mu.Unlock()
	return ""
}

func (sim *Simulator) handleListSweep(args []string) string {
	if len(args) != 2 {
		return "ERROR: usage: lst {values} {v|i}"
	}

	val, err := pylit.Parse(args[0])
	if err != nil {
		return fmt.Sprintf("ERROR: invalid list sweep values: %v", err)
	}

	sweep := map[int][]float64{}
	switch v := val.(type) {
	case pylit.Dict:
		for key, chVals := range v {
			idx, ok := key.(int64)
			if !ok {
				return fmt.Sprintf("ERROR: invalid channel key %v", key)
			}
			list, ok := chVals.(pylit.List)
			if !ok {
				return fmt.Sprintf("ERROR: values for channel %d are not a list", idx)
			}
			floats, err := toFloats(list)
			if err != nil {
				return fmt.Sprintf("ERROR: %v", err)
			}
			sweep[int(idx)] = floats
		}
	case pylit.List:
		floats, err := toFloats(v)
		if err != nil {
			return fmt.Sprintf("ERROR: %v", err)
		}
		sim.channels.Range(func(idx int, _ *channelState) bool {
			sweep[idx] = floats
			return true
		})
	default:
		return "ERROR: list sweep values must be a dict or list"
	}

	sim.mu.Lock()
	sim.sweepValues = sweep
	sim.mu.Unlock()
	return ""
}

func (sim *Simulator) handleDC(args []string) string {
	if len(args) != 2 {
		return "ERROR: usage: dc {values} {v|i}"
	}

	val, err := pylit.Parse(args[0])
	if err != nil {
		return fmt.Sprintf("ERROR: invalid dc values: %v", err)
	}

	switch v := val.(type) {
	case pylit.Dict:
		for key, dcVal := range v {
			idx, ok := key.(int64)
			if !ok {
				return fmt.Sprintf("ERROR: invalid channel key %v", key)
			}
			dc, err := toFloat(dcVal)
			if err != nil {
				return fmt.Sprintf("ERROR: %v", err)
			}
			ch, ok := sim.channels.Load(int(idx))
			if !ok {
				return fmt.Sprintf("ERROR: channel %d does not exist", idx)
			}
			ch.mu.Lock()
			ch.dcValue = dc
			ch.mu.Unlock()
		}
	case int64, float64:
		dc, _ := toFloat(v)
		sim.channels.Range(func(_ int, ch *channelState) bool {
			ch.mu.Lock()
			ch.dcValue = dc
			ch.mu.Unlock()
			return true
		})
	default:
		return "ERROR: dc values must be a dict or number"
	}

	return ""
}

func (sim *Simulator) handleMeasure(args []string) string {
	if len(args) != 3 {
		return "ERROR: usage: meas {channels|None} {dc|sweep} {0|1}"
	}

	selected, errReply := sim.selectChannels(args[0])
	if errReply != "" {
		return errReply
	}
	allowChunking := args[2] == "1"

	data := map[int][]any{}
	switch args[1] {
	case "dc":
		for _, idx := range selected {
			ch, _ := sim.channels.Load(idx)
			ch.mu.Lock()
			dc := ch.dcValue
			ch.mu.Unlock()
			data[idx] = []any{[]any{dc, dc * 1e-3, 0.0, 0}}
		}

	case "sweep":
		sim.mu.RLock()
		sweep := sim.sweepValues
		sim.mu.RUnlock()

		for _, idx := range selected {
			values, ok := sweep[idx]
			if !ok {
				return fmt.Sprintf("ERROR: no sweep configured for channel %d", idx)
			}
			if len(values) > sim.bufSize && !allowChunking {
				return fmt.Sprintf("ERROR: sweep of %d points exceeds buffer size %d", len(values), sim.bufSize)
			}
			samples := make([]any, 0, len(values))
			for i, v := range values {
				t := float64(i) / float64(sim.sampleRate)
				samples = append(samples, []any{v, v * 1e-3, t, 0})
			}
			data[idx] = samples
		}

	default:
		return fmt.Sprintf("ERROR: unknown measurement kind %q", args[1])
	}

	return pylit.Format(data)
}

func (sim *Simulator) handleEnableOutput(args []string) string {
	if len(args) != 2 {
		return "ERROR: usage: eo {0|1} {channels|None}"
	}

	enable := args[0] == "1"
	selected, errReply := sim.selectChannels(args[1])
	if errReply != "" {
		return errReply
	}

	for _, idx := range selected {
		ch, _ := sim.channels.Load(idx)
		ch.mu.Lock()
		ch.enabled = enable
		ch.mu.Unlock()
	}
	return ""
}

func (sim *Simulator) handleLEDs(args []string) string {
	if len(args) != 4 {
		return "ERROR: usage: led {R} {G} {B} {channel|None}"
	}

	leds := [3]bool{args[0] == "1", args[1] == "1", args[2] == "1"}
	return sim.forEachSelected(args[3], func(ch *channelState) {
		ch.leds = leds
	})
}

// forEachSelected applies fn to the channel named by selector ("None" selects
// all), returning an ERROR reply for an unknown channel.
func (sim *Simulator) forEachSelected(selector string, fn func(*channelState)) string {
	if selector == "None" {
		sim.channels.Range(func(_ int, ch *channelState) bool {
			ch.mu.Lock()
			fn(ch)
			ch.mu.Unlock()
			return true
		})
		return ""
	}

	idx, err := strconv.Atoi(selector)
	if err != nil {
		return fmt.Sprintf("ERROR: invalid channel %q", selector)
	}
	ch, ok := sim.channels.Load(idx)
	if !ok {
		return fmt.Sprintf("ERROR: channel %d does not exist", idx)
	}

	ch.mu.Lock()
	fn(ch)
	ch.mu.Unlock()
	return ""
}

// selectChannels resolves a channel list selector ("None", "[0,1]" or "0")
// into channel indices, returning a non-empty ERROR reply on failure.
func (sim *Simulator) selectChannels(selector string) ([]int, string) {
	if selector == "None" {
		selected := make([]int, 0, sim.NumChannels())
		for ch := range sim.NumChannels() {
			selected = append(selected, ch)
		}
		return selected, ""
	}

	val, err := pylit.Parse(selector)
	if err != nil {
		return nil, fmt.Sprintf("ERROR: invalid channel selector %q", selector)
	}

	var indices []int64
	switch v := val.(type) {
	case int64:
		indices = []int64{v}
	case pylit.List:
		for _, item := range v {
			idx, ok := item.(int64)
			if !ok {
				return nil, fmt.Sprintf("ERROR: invalid channel %v", item)
			}
			indices = append(indices, idx)
		}
	default:
		return nil, fmt.Sprintf("ERROR: invalid channel selector %q", selector)
	}

	selected := make([]int, 0, len(indices))
	for _, idx := range indices {
		if _, ok := sim.channels.Load(int(idx)); !ok {
			return nil, fmt.Sprintf("ERROR: channel %d does not exist", idx)
		}
		selected = append(selected, int(idx))
	}
	return selected, ""
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("value %v is not a number", v)
	}
}

func toFloats(list pylit.List) ([]float64, error) {
	floats := make([]float64, 0, len(list))
	for _, item := range list {
		f, err := toFloat(item)
		if err != nil {
			return nil, err
		}
		floats = append(floats, f)
	}
	return floats, nil
}
