// compileinfoprint is imported by the command-line tools for the side effect
// of describing the build on os.Stderr at startup.
package compileinfoprint

import "github.com/carbocation/biomisc/compileinfo"

func init() {
	compileinfo.PrintToStdErr()
}
