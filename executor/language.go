package executor

import (
	"sort"

	"github.com/iarunsaragadam/isobox/model"
)

// LanguageEntry describes how a single language is executed: the container
// image, the fixed source filename written into the workspace, the run command,
// an optional compile command, and an optional resource override.
type LanguageEntry struct {
	Name           string
	DisplayName    string
	Image          string
	SourceFile     string
	RunCommand     []string
	CompileCommand []string
	Limits         *ResourceLimits
	Extensions     []string
}

// RequiresCompilation reports whether the entry has a compile phase.
func (e LanguageEntry) RequiresCompilation() bool {
	return len(e.CompileCommand) > 0
}

// Registry is the immutable catalog of supported languages. It is built once
// at startup; lookups afterwards are lock-free reads.
type Registry struct {
	entries map[string]LanguageEntry
}

// NewRegistry builds the language catalog.
func NewRegistry() *Registry {
	entries := make(map[string]LanguageEntry)

	add := func(e LanguageEntry) {
		entries[e.Name] = e
	}

	// Scripting languages
	add(LanguageEntry{
		Name: "python", DisplayName: "Python", Image: "python:3.11-slim",
		SourceFile: "main.py", RunCommand: []string{"python", "main.py"},
		Extensions: []string{"py"},
	})
	add(LanguageEntry{
		Name: "python2", DisplayName: "Python 2", Image: "python:2.7-slim",
		SourceFile: "main.py", RunCommand: []string{"python", "main.py"},
		Extensions: []string{"py"},
	})
	add(LanguageEntry{
		Name: "node", DisplayName: "Node.js", Image: "node:20-slim",
		SourceFile: "main.js", RunCommand: []string{"node", "main.js"},
		Extensions: []string{"js"},
	})
	add(LanguageEntry{
		Name: "php", DisplayName: "PHP", Image: "php:8.2-cli",
		SourceFile: "main.php", RunCommand: []string{"php", "main.php"},
		Extensions: []string{"php"},
	})
	add(LanguageEntry{
		Name: "ruby", DisplayName: "Ruby", Image: "ruby:3.2-slim",
		SourceFile: "main.rb", RunCommand: []string{"ruby", "main.rb"},
		Extensions: []string{"rb"},
	})
	add(LanguageEntry{
		Name: "perl", DisplayName: "Perl", Image: "perl:5.38-slim",
		SourceFile: "main.pl", RunCommand: []string{"perl", "main.pl"},
		Extensions: []string{"pl"},
	})
	add(LanguageEntry{
		Name: "bash", DisplayName: "Bash", Image: "bash:5.2",
		SourceFile: "main.sh", RunCommand: []string{"bash", "main.sh"},
		Extensions: []string{"sh"},
	})
	add(LanguageEntry{
		Name: "lua", DisplayName: "Lua", Image: "nickblah/lua:5.4",
		SourceFile: "main.lua", RunCommand: []string{"lua", "main.lua"},
		Extensions: []string{"lua"},
	})
	add(LanguageEntry{
		Name: "r", DisplayName: "R", Image: "r-base:4.3.1",
		SourceFile: "main.r", RunCommand: []string{"Rscript", "main.r"},
		Extensions: []string{"r"},
	})
	add(LanguageEntry{
		Name: "octave", DisplayName: "GNU Octave", Image: "gnuoctave/octave:8.2.0",
		SourceFile: "main.m", RunCommand: []string{"octave", "-qf", "main.m"},
		Extensions: []string{"m"},
	})
	add(LanguageEntry{
		Name: "dart", DisplayName: "Dart", Image: "dart:stable",
		SourceFile: "main.dart", RunCommand: []string{"dart", "run", "main.dart"},
		Extensions: []string{"dart"},
	})
	add(LanguageEntry{
		Name: "groovy", DisplayName: "Groovy", Image: "groovy:4.0-jdk17",
		SourceFile: "main.groovy", RunCommand: []string{"groovy", "main.groovy"},
		Extensions: []string{"groovy"},
	})
	add(LanguageEntry{
		Name: "prolog", DisplayName: "SWI-Prolog", Image: "swipl:9.0.4",
		SourceFile: "main.pl", RunCommand: []string{"swipl", "-q", "-s", "main.pl", "-t", "halt"},
		Extensions: []string{"pl", "pro"},
	})
	add(LanguageEntry{
		Name: "basic", DisplayName: "BASIC", Image: "bwbasic:3.20",
		SourceFile: "main.bas", RunCommand: []string{"bwbasic", "main.bas"},
		Extensions: []string{"bas"},
	})

	// Compiled languages
	add(LanguageEntry{
		Name: "rust", DisplayName: "Rust", Image: "rust:1.75-slim",
		SourceFile:     "main.rs",
		CompileCommand: []string{"rustc", "-O", "-o", "main", "main.rs"},
		RunCommand:     []string{"./main"},
		Extensions:     []string{"rs"},
	})
	add(LanguageEntry{
		Name: "c", DisplayName: "C", Image: "gcc:13",
		SourceFile:     "main.c",
		CompileCommand: []string{"gcc", "-O2", "-o", "main", "main.c"},
		RunCommand:     []string{"./main"},
		Extensions:     []string{"c"},
	})
	add(LanguageEntry{
		Name: "cpp", DisplayName: "C++", Image: "gcc:13",
		SourceFile:     "main.cpp",
		CompileCommand: []string{"g++", "-O2", "-o", "main", "main.cpp"},
		RunCommand:     []string{"./main"},
		Extensions:     []string{"cpp", "cc"},
	})
	add(LanguageEntry{
		Name: "java", DisplayName: "Java", Image: "openjdk:17-slim",
		SourceFile:     "Main.java",
		CompileCommand: []string{"javac", "Main.java"},
		RunCommand:     []string{"java", "Main"},
		Extensions:     []string{"java"},
	})
	add(LanguageEntry{
		Name: "kotlin", DisplayName: "Kotlin", Image: "zenika/kotlin:1.9",
		SourceFile:     "Main.kt",
		CompileCommand: []string{"kotlinc", "Main.kt", "-include-runtime", "-d", "main.jar"},
		RunCommand:     []string{"java", "-jar", "main.jar"},
		Extensions:     []string{"kt"},
	})
	add(LanguageEntry{
		Name: "swift", DisplayName: "Swift", Image: "swift:5.9",
		SourceFile:     "main.swift",
		CompileCommand: []string{"swiftc", "-O", "-o", "main", "main.swift"},
		RunCommand:     []string{"./main"},
		Extensions:     []string{"swift"},
	})
	add(LanguageEntry{
		Name: "scala", DisplayName: "Scala", Image: "sbtscala/scala-sbt:eclipse-temurin-17.0.8_1.9.6_3.3.1",
		SourceFile:     "Main.scala",
		CompileCommand: []string{"scalac", "Main.scala"},
		RunCommand:     []string{"scala", "Main"},
		Extensions:     []string{"scala"},
	})
	add(LanguageEntry{
		Name: "haskell", DisplayName: "Haskell", Image: "haskell:9.4-slim",
		SourceFile:     "main.hs",
		CompileCommand: []string{"ghc", "-O2", "-o", "main", "main.hs"},
		RunCommand:     []string{"./main"},
		Extensions:     []string{"hs"},
	})
	add(LanguageEntry{
		Name: "ocaml", DisplayName: "OCaml", Image: "ocaml/opam:debian-12-ocaml-5.1",
		SourceFile:     "main.ml",
		CompileCommand: []string{"ocamlfind", "ocamlopt", "-package", "str", "-linkpkg", "-o", "main", "main.ml"},
		RunCommand:     []string{"./main"},
		Extensions:     []string{"ml"},
	})
	add(LanguageEntry{
		Name: "d", DisplayName: "D", Image: "dlang2/dmd-ubuntu:2.105.2",
		SourceFile:     "main.d",
		CompileCommand: []string{"dmd", "-of=main", "main.d"},
		RunCommand:     []string{"./main"},
		Extensions:     []string{"d"},
	})
	add(LanguageEntry{
		Name: "fortran", DisplayName: "Fortran", Image: "gcc:13",
		SourceFile:     "main.f90",
		CompileCommand: []string{"gfortran", "-O2", "-o", "main", "main.f90"},
		RunCommand:     []string{"./main"},
		Extensions:     []string{"f90", "f"},
	})
	add(LanguageEntry{
		Name: "pascal", DisplayName: "Pascal", Image: "frolvlad/alpine-fpc:3.2.2",
		SourceFile:     "main.pas",
		CompileCommand: []string{"fpc", "main.pas"},
		RunCommand:     []string{"./main"},
		Extensions:     []string{"pas"},
	})
	add(LanguageEntry{
		Name: "assembly", DisplayName: "Assembly (NASM)", Image: "nasm:2.16",
		SourceFile:     "main.asm",
		CompileCommand: []string{"sh", "-c", "nasm -f elf64 -o main.o main.asm && ld -o main main.o"},
		RunCommand:     []string{"./main"},
		Extensions:     []string{"asm"},
	})
	add(LanguageEntry{
		Name: "cobol", DisplayName: "COBOL", Image: "olegkunitsyn/gnucobol:3.1",
		SourceFile:     "main.cob",
		CompileCommand: []string{"cobc", "-x", "-free", "-o", "main", "main.cob"},
		RunCommand:     []string{"./main"},
		Extensions:     []string{"cob", "cbl"},
	})
	add(LanguageEntry{
		Name: "objective-c", DisplayName: "Objective-C", Image: "gcc:13",
		SourceFile:     "main.m",
		CompileCommand: []string{"gcc", "-o", "main", "main.m", "-lobjc"},
		RunCommand:     []string{"./main"},
		Extensions:     []string{"m"},
	})

	// Functional languages
	add(LanguageEntry{
		Name: "clojure", DisplayName: "Clojure", Image: "clojure:temurin-17-tools-deps",
		SourceFile: "main.clj", RunCommand: []string{"clojure", "-M", "main.clj"},
		Extensions: []string{"clj"},
	})
	add(LanguageEntry{
		Name: "elixir", DisplayName: "Elixir", Image: "elixir:1.15-slim",
		SourceFile: "main.exs", RunCommand: []string{"elixir", "main.exs"},
		Extensions: []string{"exs", "ex"},
	})
	add(LanguageEntry{
		Name: "common-lisp", DisplayName: "Common Lisp", Image: "clfoundation/sbcl:2.2.4",
		SourceFile: "main.lisp", RunCommand: []string{"sbcl", "--script", "main.lisp"},
		Extensions: []string{"lisp"},
	})
	add(LanguageEntry{
		Name: "erlang", DisplayName: "Erlang", Image: "erlang:26-slim",
		SourceFile: "main.erl", RunCommand: []string{"escript", "main.erl"},
		Extensions: []string{"erl"},
	})

	// Other languages
	add(LanguageEntry{
		Name: "go", DisplayName: "Go", Image: "golang:1.21",
		SourceFile: "main.go", RunCommand: []string{"go", "run", "main.go"},
		Limits:     goLimits(),
		Extensions: []string{"go"},
	})
	add(LanguageEntry{
		Name: "csharp", DisplayName: "C#", Image: "mono:6.12",
		SourceFile:     "Main.cs",
		CompileCommand: []string{"mcs", "-out:main.exe", "Main.cs"},
		RunCommand:     []string{"mono", "main.exe"},
		Extensions:     []string{"cs"},
	})
	add(LanguageEntry{
		Name: "fsharp", DisplayName: "F#", Image: "mcr.microsoft.com/dotnet/sdk:7.0",
		SourceFile: "main.fsx", RunCommand: []string{"dotnet", "fsi", "main.fsx"},
		Extensions: []string{"fsx", "fs"},
	})
	add(LanguageEntry{
		Name: "vbnet", DisplayName: "Visual Basic .NET", Image: "mono:6.12",
		SourceFile:     "Main.vb",
		CompileCommand: []string{"vbnc", "-out:main.exe", "Main.vb"},
		RunCommand:     []string{"mono", "main.exe"},
		Extensions:     []string{"vb"},
	})
	add(LanguageEntry{
		Name: "typescript", DisplayName: "TypeScript", Image: "denoland/deno:1.40.2",
		SourceFile: "main.ts", RunCommand: []string{"deno", "run", "--quiet", "main.ts"},
		Extensions: []string{"ts"},
	})
	add(LanguageEntry{
		Name: "sql", DisplayName: "SQL (SQLite)", Image: "keinos/sqlite3:3.44.2",
		SourceFile: "main.sql",
		RunCommand: []string{"sh", "-c", "sqlite3 :memory: < main.sql"},
		Extensions: []string{"sql"},
	})

	return &Registry{entries: entries}
}

// Lookup resolves a language identifier to its entry.
func (r *Registry) Lookup(language string) (LanguageEntry, error) {
	entry, ok := r.entries[language]
	if !ok {
		return LanguageEntry{}, unsupportedLanguageError(language)
	}
	return entry, nil
}

// List returns the supported-language enumeration, sorted by identifier.
func (r *Registry) List() []model.LanguageInfo {
	infos := make([]model.LanguageInfo, 0, len(r.entries))
	for _, entry := range r.entries {
		infos = append(infos, model.LanguageInfo{
			Name:                entry.Name,
			DisplayName:         entry.DisplayName,
			DockerImage:         entry.Image,
			RequiresCompilation: entry.RequiresCompilation(),
			FileExtensions:      entry.Extensions,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Len returns the number of registered languages.
func (r *Registry) Len() int {
	return len(r.entries)
}
