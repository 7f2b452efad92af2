package bootstrap

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
)

// Host is one hostfile line: a host name and the number of ranks it runs.
type Host struct {
	Name  string
	Slots int
}

// Expand returns one mesh address per slot, on consecutive ports from basePort.
func (h Host) Expand(basePort int) []string {
	return h.expandFrom(basePort)
}

func (h Host) expandFrom(port int) []string {
	out := make([]string, 0, h.Slots)
	for i := 0; i < h.Slots; i++ {
		out = append(out, net.JoinHostPort(h.Name, strconv.Itoa(port+i)))
	}

	return out
}

// Peers expands hosts in order into the rank-indexed address list. A host
// named more than once continues its port sequence, so ranks sharing a
// machine never collide.
func Peers(hosts []Host, basePort int) []string {
	var out []string
	next := make(map[string]int, len(hosts))
	for _, h := range hosts {
		port, ok := next[h.Name]
		if !ok {
			port = basePort
		}
		out = append(out, h.expandFrom(port)...)
		next[h.Name] = port + h.Slots
	}

	return out
}

// GenerateHosts returns the default layout: master for rank 0 and
// fmt.Sprintf(workerPattern, r) for every other rank, one slot each.
func GenerateHosts(master, workerPattern string, worldSize int) []Host {
	if worldSize < 1 {
		return nil
	}
	hosts := make([]Host, 0, worldSize)
	hosts = append(hosts, Host{Name: master, Slots: 1})
	for r := 1; r < worldSize; r++ {
		hosts = append(hosts, Host{Name: fmt.Sprintf(workerPattern, r), Slots: 1})
	}

	return hosts
}

// ParseHostfile reads "name [slots=K] [max_slots=M]" lines. Blank lines and
// text after '#' are ignored; slots defaults to 1.
func ParseHostfile(r io.Reader) ([]Host, error) {
	var hosts []Host
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}

		h := Host{Name: fields[0], Slots: 1}
		for _, kv := range fields[1:] {
			key, val, ok := strings.Cut(kv, "=")
			if !ok {
				return nil, fmt.Errorf("line %d: %q: %w", line, kv, ErrBadHostfile)
			}
			switch key {
			case "slots":
				n, err := strconv.Atoi(val)
				if err != nil || n < 1 {
					return nil, fmt.Errorf("line %d: slots=%q: %w", line, val, ErrBadHostfile)
				}
				h.Slots = n
			case "max_slots":
				// accepted for mpirun compatibility; the mesh has no oversubscription
			default:
				return nil, fmt.Errorf("line %d: unknown key %q: %w", line, key, ErrBadHostfile)
			}
		}
		hosts = append(hosts, h)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("bootstrap: reading hostfile: %w", err)
	}

	return hosts, nil
}

// WriteHostfile writes hosts in the format ParseHostfile reads.
func WriteHostfile(w io.Writer, hosts []Host) error {
	bw := bufio.NewWriter(w)
	for _, h := range hosts {
		if _, err := fmt.Fprintf(bw, "%s slots=%d\n", h.Name, h.Slots); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}
