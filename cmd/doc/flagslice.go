package main

import "strings"

// flagSlice collects a flag that may be given more than once. Each value
// may also be a comma-separated list.
type flagSlice []string

func (f *flagSlice) String() string {
	if f == nil {
		return ""
	}
	return strings.Join(*f, ",")
}

func (f *flagSlice) Set(value string) error {
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			*f = append(*f, v)
		}
	}
	return nil
}
