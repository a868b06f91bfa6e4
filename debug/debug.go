package debug

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"
)

func init() {
	log.SetFlags(log.Ltime | log.Lmicroseconds)
}

//
// Debug output is controlled by the SHADOWDEBUG environment variable,
// which can be a list of labels (e.g., "PROCESS;WAITER").
//

var labels map[Tselector]bool

func init() {
	labels = make(map[Tselector]bool)
	s := os.Getenv("SHADOWDEBUG")
	if s == "" {
		return
	}
	for _, l := range strings.Split(s, ";") {
		labels[Tselector(l)] = true
	}
}

func WillBePrinted(label Tselector) bool {
	return labels[label] || label == ALWAYS
}

func DPrintf(label Tselector, format string, v ...interface{}) {
	if WillBePrinted(label) {
		log.Printf("%v %v", label, fmt.Sprintf(format, v...))
	}
}

func DFatalf(format string, v ...interface{}) {
	// Get info for the caller.
	pc, file, line, ok := runtime.Caller(1)
	fnDetails := runtime.FuncForPC(pc)
	if ok && fnDetails != nil {
		log.Fatalf("FATAL %v %v:%v %v", fnDetails.Name(), file, line, fmt.Sprintf(format, v...))
	} else {
		log.Fatalf("FATAL (missing details) %v", fmt.Sprintf(format, v...))
	}
}
