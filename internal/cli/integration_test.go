package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testRunner(t *testing.T) (Runner, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	r := Runner{
		Version: "0.0.0-test",
		Now:     func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
		Stdout:  &stdout,
		Stderr:  &stderr,
	}
	return r, &stdout, &stderr
}

func TestCLI_RunMatch_VerifyMatch_Pass(t *testing.T) {
	outDir := t.TempDir()
	r, _, stderr := testRunner(t)

	code := r.Run([]string{"run-match", "--scenario", "numberguess", "--seed", "42", "--turns", "20", "--agents", "random,baseline", "--outDir", outDir})
	if code != 0 {
		t.Fatalf("run-match failed: code=%d stderr=%s", code, stderr.String())
	}

	entries, err := os.ReadDir(outDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected exactly one match directory, got %v (err=%v)", entries, err)
	}
	matchDir := filepath.Join(outDir, entries[0].Name())

	r2, _, stderr2 := testRunner(t)
	code = r2.Run([]string{"verify-match", "--path", matchDir})
	if code != 0 {
		t.Fatalf("verify-match failed: code=%d stderr=%s", code, stderr2.String())
	}
}

func TestCLI_RunTournament_VerifyAndValidate(t *testing.T) {
	outDir := t.TempDir()
	r, _, stderr := testRunner(t)

	code := r.Run([]string{"run-tournament", "--seed", "101", "--rounds", "1", "--maxTurns", "20", "--scenario", "numberguess", "--agents", "random,baseline", "--outDir", outDir})
	if code != 0 {
		t.Fatalf("run-tournament failed: code=%d stderr=%s", code, stderr.String())
	}

	r2, _, stderr2 := testRunner(t)
	code = r2.Run([]string{"verify-tournament", "--path", outDir})
	if code != 0 {
		t.Fatalf("verify-tournament failed: code=%d stderr=%s", code, stderr2.String())
	}

	r3, _, stderr3 := testRunner(t)
	code = r3.Run([]string{"validate-bundle", "--path", outDir})
	if code != 0 {
		t.Fatalf("validate-bundle failed: code=%d stderr=%s", code, stderr3.String())
	}
}

func TestCLI_RunTournament_Determinism(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()

	rA, _, _ := testRunner(t)
	if code := rA.Run([]string{"run-tournament", "--seed", "7", "--rounds", "2", "--maxTurns", "20", "--scenario", "numberguess", "--agents", "random,baseline", "--outDir", dirA}); code != 0 {
		t.Fatalf("run-tournament A failed: %d", code)
	}
	rB, _, _ := testRunner(t)
	if code := rB.Run([]string{"run-tournament", "--seed", "7", "--rounds", "2", "--maxTurns", "20", "--scenario", "numberguess", "--agents", "random,baseline", "--outDir", dirB}); code != 0 {
		t.Fatalf("run-tournament B failed: %d", code)
	}

	manifestA, err := os.ReadFile(filepath.Join(dirA, "tournament_manifest.json"))
	if err != nil {
		t.Fatalf("read manifest A: %v", err)
	}
	manifestB, err := os.ReadFile(filepath.Join(dirB, "tournament_manifest.json"))
	if err != nil {
		t.Fatalf("read manifest B: %v", err)
	}
	if string(manifestA) != string(manifestB) {
		t.Fatalf("tournament manifests diverged across runs")
	}
}

func TestCLI_SignAndVerifyReceipt_FailsOnTamper(t *testing.T) {
	outDir := t.TempDir()
	r, _, _ := testRunner(t)
	if code := r.Run([]string{"run-tournament", "--seed", "5", "--rounds", "1", "--maxTurns", "20", "--scenario", "numberguess", "--agents", "random,baseline", "--outDir", outDir}); code != 0 {
		t.Fatalf("run-tournament failed")
	}

	keyDir := t.TempDir()
	privPath := filepath.Join(keyDir, "priv.pem")
	pubPath := filepath.Join(keyDir, "pub.pem")
	writeTestKeyPair(t, privPath, pubPath)

	rSign, _, stderrSign := testRunner(t)
	code := rSign.Run([]string{"sign-tournament", outDir, "--key", privPath, "--issuer", "test-harness"})
	if code != 0 {
		t.Fatalf("sign-tournament failed: code=%d stderr=%s", code, stderrSign.String())
	}

	rVerify, _, stderrVerify := testRunner(t)
	code = rVerify.Run([]string{"verify-receipt", outDir, "--pub", pubPath})
	if code != 0 {
		t.Fatalf("verify-receipt should pass before tamper: code=%d stderr=%s", code, stderrVerify.String())
	}

	// Flip a byte in one match.jsonl and confirm verify-receipt now fails.
	matchesRoot := filepath.Join(outDir, "matches")
	entries, err := os.ReadDir(matchesRoot)
	if err != nil || len(entries) == 0 {
		t.Fatalf("expected match subdirectories, err=%v entries=%v", err, entries)
	}
	logPath := filepath.Join(matchesRoot, entries[0].Name(), "match.jsonl")
	raw, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	tampered := append([]byte{}, raw...)
	tampered[0] ^= 0xFF
	if err := os.WriteFile(logPath, tampered, 0o644); err != nil {
		t.Fatalf("write tampered log: %v", err)
	}

	rVerify2, _, _ := testRunner(t)
	code = rVerify2.Run([]string{"verify-receipt", outDir, "--pub", pubPath})
	if code == 0 {
		t.Fatalf("expected verify-receipt to fail after tampering with a match log")
	}
}

func TestCLI_ReplayMatch(t *testing.T) {
	outDir := t.TempDir()
	r, _, _ := testRunner(t)
	if code := r.Run([]string{"run-match", "--scenario", "numberguess", "--seed", "9", "--turns", "20", "--agents", "random,baseline", "--outDir", outDir}); code != 0 {
		t.Fatalf("run-match failed")
	}
	entries, _ := os.ReadDir(outDir)
	logPath := filepath.Join(outDir, entries[0].Name(), "match.jsonl")

	rReplay, stdout, stderr := testRunner(t)
	code := rReplay.Run([]string{"replay-match", "--in", logPath})
	if code != 0 {
		t.Fatalf("replay-match failed: code=%d stderr=%s", code, stderr.String())
	}
	if !bytes.Contains(stdout.Bytes(), []byte("# Match transcript")) {
		t.Fatalf("expected transcript header, got: %s", stdout.String())
	}
	if bytes.Contains(stdout.Bytes(), []byte("_private")) {
		t.Fatalf("replay transcript must never leak _private keys")
	}
}
