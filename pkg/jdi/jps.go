package jdi

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// JpsLister enumerates local JVMs by running the jps tool from the JDK.
type JpsLister struct {
	// Path to the jps executable. Defaults to "jps" resolved from PATH.
	Path string
}

// AttachablePIDs runs `jps -l` and parses its "pid mainclass" output.
func (j *JpsLister) AttachablePIDs() (map[int]string, error) {
	path := j.Path
	if path == "" {
		path = "jps"
	}
	out, err := exec.Command(path, "-l").Output()
	if err != nil {
		return nil, fmt.Errorf("could not run %s: %v", path, err)
	}
	return parseJps(out), nil
}

func parseJps(out []byte) map[int]string {
	pids := make(map[int]string)
	scan := bufio.NewScanner(bytes.NewReader(out))
	for scan.Scan() {
		fields := strings.SplitN(strings.TrimSpace(scan.Text()), " ", 2)
		if len(fields) == 0 {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		desc := ""
		if len(fields) > 1 {
			desc = fields[1]
		}
		pids[pid] = desc
	}
	return pids
}
