/*
 * minijvm - a minimal Java Virtual Machine
 */

package main

import (
	"fmt"

	"minijvm/internal/classfile"
	"minijvm/internal/mlog"
)

// loadClasses parses each given .class file path and returns them
// keyed by this_class name, plus the first class that declares a
// main([Ljava/lang/String;)V method (nil if none do).
func loadClasses(paths []string) (map[string]*classfile.Class, *classfile.Class, error) {
	mlog.Init()
	if verbose {
		_ = mlog.SetLogLevel(mlog.Fine)
	}

	classes := make(map[string]*classfile.Class, len(paths))
	var entry *classfile.Class
	for _, p := range paths {
		cls, err := classfile.Load(p)
		if err != nil {
			return nil, nil, fmt.Errorf("loading %s: %w", p, err)
		}
		classes[cls.ThisClass] = cls
		if entry == nil && cls.Main() != nil {
			entry = cls
		}
	}
	return classes, entry, nil
}
