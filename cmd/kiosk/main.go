package main

// The kiosk terminal runs one check-in session at a time against the
// portal backend, driven from stdin.  It is the reference host for the
// session core: a touch front end replaces the prompt loop, but the
// machine, client and session store wiring stays the same.

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/openvisit/visitor-portal/internal/config"
	"github.com/openvisit/visitor-portal/internal/kiosk"
	"github.com/openvisit/visitor-portal/internal/model"
	"github.com/openvisit/visitor-portal/internal/utils"
)

func main() {
	_ = godotenv.Load()
	cfg := config.LoadKioskConfig()

	client := kiosk.NewClient(cfg.APIBaseURL, nil)

	// The session store keeps the current visitor ID across reloads and
	// power cuts.  Without Redis the kiosk still works; it just cannot
	// resume a session after a restart.
	var store kiosk.SessionStore
	if rdb := config.NewRedisClient(); rdb != nil {
		store = kiosk.NewRedisSessionStore(rdb, cfg.KioskID, cfg.SessionTTL)
	} else {
		log.Println("redis unavailable: sessions will not survive a restart")
		store = kiosk.NewMemorySessionStore()
	}

	// KIOSK_ENTRY carries the same query-style directives the portal
	// accepts in its address bar, e.g. "returning_id=5".  Directives are
	// consumed by the first session only.
	entry := kiosk.EntryDirective{}
	if raw := os.Getenv("KIOSK_ENTRY"); raw != "" {
		if q, err := url.ParseQuery(raw); err == nil {
			entry = kiosk.ParseEntry(q)
		}
	}

	log.Printf("kiosk %s -> %s", cfg.KioskID, cfg.APIBaseURL)
	in := bufio.NewScanner(os.Stdin)
	for {
		runSession(client, store, in, entry)
		entry = kiosk.EntryDirective{}
	}
}

// runSession drives one machine from start to exit.  Every line of
// input counts as activity for the idle timer.
func runSession(client *kiosk.Client, store kiosk.SessionStore, in *bufio.Scanner, entry kiosk.EntryDirective) {
	ctx := context.Background()
	done := make(chan kiosk.ExitReason, 1)
	m := kiosk.NewMachine(kiosk.DefaultConfig(), client, client, store, func(r kiosk.ExitReason) {
		done <- r
	})
	if err := m.Start(ctx, entry); err != nil {
		log.Printf("start: %v", err)
	}
	if p := m.Phase(); p == kiosk.PhaseNewVisitorForm || p == kiosk.PhaseLookupFailed {
		runForm(ctx, m, in)
	}

	for {
		select {
		case r := <-done:
			fmt.Printf("\nsession ended (%s)\n", r)
			return
		default:
		}
		render(m)
		fmt.Print("> ")
		if !in.Scan() {
			os.Exit(0)
		}
		m.Touch()
		args := strings.Fields(in.Text())
		if len(args) == 0 {
			continue
		}
		dispatch(ctx, m, in, args)
	}
}

func dispatch(ctx context.Context, m *kiosk.Machine, in *bufio.Scanner, args []string) {
	var err error
	switch args[0] {
	case "new":
		if err = m.ChooseNewVisitor(); err == nil {
			runForm(ctx, m, in)
		}
	case "return":
		if len(args) != 3 {
			fmt.Println("usage: return <phone> <year>")
			return
		}
		year, aerr := strconv.Atoi(args[2])
		if aerr != nil {
			fmt.Println("usage: return <phone> <year>")
			return
		}
		if err = m.LookupReturning(ctx, args[1], year); err == nil {
			// A miss or a transient failure hands over to the manual
			// form with the entered identity pre-filled.
			if p := m.Phase(); p == kiosk.PhaseNewVisitorForm || p == kiosk.PhaseLookupFailed {
				runForm(ctx, m, in)
			}
		}
	case "stay":
		m.CancelRedirect()
	case "home":
		m.ReturnHome()
	case "checkout":
		err = m.CheckOut(ctx)
	case "quit":
		os.Exit(0)
	default:
		fmt.Println("commands: new | return <phone> <year> | stay | checkout | home | quit")
	}
	if err != nil {
		fmt.Println("!", err)
	}
}

// runForm walks the registration steps, prompting for the current
// step's fields and advancing through the shared step engine so the
// progress indicator and validation gates match the touch UI's.
func runForm(ctx context.Context, m *kiosk.Machine, in *bufio.Scanner) {
	draft := kiosk.DraftFromPrefill(m.Prefill())
	form := kiosk.NewStepForm([]kiosk.Step{
		{Title: "Name", Validate: func(context.Context) error {
			if strings.TrimSpace(draft.FirstName) == "" || strings.TrimSpace(draft.LastName) == "" {
				return errors.New("first and last name are required")
			}
			return nil
		}},
		{Title: "Identity", Validate: func(context.Context) error {
			if !utils.ValidYearOfBirth(draft.YearOfBirth) {
				return errors.New("year of birth out of range")
			}
			sex := strings.ToUpper(strings.TrimSpace(draft.Sex))
			if sex != model.SexMasculine && sex != model.SexFeminine {
				return errors.New("sex must be MASCULINE or FEMININE")
			}
			_, err := utils.NormalizePhone(draft.Phone)
			return err
		}},
		{Title: "Visit"},
	}, nil, func(ctx context.Context) error {
		return m.SubmitNewVisitor(ctx, draft)
	})

	for {
		if p := m.Phase(); p != kiosk.PhaseNewVisitorForm && p != kiosk.PhaseLookupFailed {
			return // submitted, or the session ended under us
		}
		fmt.Printf("\n-- %s (step %d of %d) --\n", form.Current().Title, form.Index()+1, len(form.Progress()))
		switch form.Index() {
		case 0:
			draft.FirstName = prompt(in, "first name", draft.FirstName)
			draft.MiddleName = prompt(in, "middle name (optional)", draft.MiddleName)
			draft.LastName = prompt(in, "last name", draft.LastName)
		case 1:
			draft.YearOfBirth = promptInt(in, "year of birth", draft.YearOfBirth)
			draft.Sex = prompt(in, "sex (MASCULINE/FEMININE)", draft.Sex)
			draft.Phone = prompt(in, "phone", draft.Phone)
			draft.Email = prompt(in, "email (optional)", draft.Email)
		case 2:
			fmt.Printf("checking in %s\n", draft.FullName())
			draft.Purpose = prompt(in, "purpose of visit", draft.Purpose)
		}
		m.Touch()
		if err := form.Next(ctx); err != nil {
			fmt.Println("!", err)
		}
	}
}

func render(m *kiosk.Machine) {
	switch m.Phase() {
	case kiosk.PhaseSelectingType:
		fmt.Println("\nWelcome.  Commands: new | return <phone> <year>")
	case kiosk.PhaseCheckedIn, kiosk.PhaseDuplicateConflict:
		pair, conflict, ok := m.Result()
		if ok {
			if conflict {
				fmt.Printf("\n%s is already checked in (visit #%d, since %s).\n",
					pair.Visitor.FullName(), pair.Visit.ID, pair.Visit.CheckedInAt.Format("15:04"))
			} else {
				fmt.Printf("\nWelcome, %s.  Visit #%d is open.\n", pair.Visitor.FullName(), pair.Visit.ID)
			}
		}
		if s := m.RedirectRemaining(); s > 0 {
			fmt.Printf("returning to the welcome screen in %ds.  Commands: stay | checkout | home\n", s)
		} else {
			fmt.Println("commands: checkout | home")
		}
	}
}

func prompt(in *bufio.Scanner, label, current string) string {
	if current != "" {
		fmt.Printf("%s [%s]: ", label, current)
	} else {
		fmt.Printf("%s: ", label)
	}
	if !in.Scan() {
		os.Exit(0)
	}
	if v := strings.TrimSpace(in.Text()); v != "" {
		return v
	}
	return current
}

func promptInt(in *bufio.Scanner, label string, current int) int {
	cur := ""
	if current != 0 {
		cur = strconv.Itoa(current)
	}
	v := prompt(in, label, cur)
	n, err := strconv.Atoi(v)
	if err != nil {
		return current
	}
	return n
}
