package portal

// The selectors below are the fragile external contract with MEBBIS. The
// portal is an ASP.NET WebForms application; any server-side change to these
// control IDs breaks navigation or submission and must surface as a fatal or
// per-item error, never a silent no-op.

const (
	loginPath = "/default.aspx"

	selLoginUsername = `#txtKullaniciAdi`
	selLoginPassword = `#txtSifre`
	selLoginButton   = `#btnGirisYap`

	// Visible only after the human completes the portal's verification step
	selPortalHome = `#ctl00_lblKullaniciBilgi`
)

// Record-entry screen (e-Rehberlik individual interview form).
const (
	selStudentSearchBox    = `#ctl00_ContentPlaceHolder1_txtTCKimlikNo`
	selStudentSearchButton = `#ctl00_ContentPlaceHolder1_btnOgrenciAra`
	selStudentResultRow    = `#ctl00_ContentPlaceHolder1_grdOgrenci tr.satir`

	selFieldDate     = `#ctl00_ContentPlaceHolder1_txtGorusmeTarihi`
	selFieldWorkArea = `#ctl00_ContentPlaceHolder1_ddlCalismaAlani`
	selFieldTopic    = `#ctl00_ContentPlaceHolder1_ddlGorusmeKonusu`
	selFieldMethod   = `#ctl00_ContentPlaceHolder1_ddlGorusmeYontemi`
	selFieldSummary  = `#ctl00_ContentPlaceHolder1_txtOzet`

	selSaveButton   = `#ctl00_ContentPlaceHolder1_btnKaydet`
	selConfirmation = `#ctl00_ContentPlaceHolder1_lblSonuc`
)

const stepSelectInstitution = "select institution"

// institutionLink targets the row of one school on the institution screen.
func institutionLink(code string) string {
	return `#ctl00_ContentPlaceHolder1_grdKurum tr.satir a[href*="` + code + `"]`
}

// navStep is one UI selection on the fixed path from the portal home to the
// interview entry screen.
type navStep struct {
	name    string
	click   string
	waitFor string
}

// navigationPath is walked in order by NavigateToDataEntry; every step waits
// for its target element with the configured step timeout.
var navigationPath = []navStep{
	{
		name:    "open e-Rehberlik module",
		click:   `a[href*="ERH00001"]`,
		waitFor: `#ctl00_ContentPlaceHolder1_pnlKurumSec`,
	},
	{
		name:    stepSelectInstitution,
		click:   `#ctl00_ContentPlaceHolder1_grdKurum tr.satir a`,
		waitFor: `#ctl00_MenuPlaceHolder_mnuRehberlik`,
	},
	{
		name:    "open interview records menu",
		click:   `a[href*="BireyselGorusme"]`,
		waitFor: selStudentSearchBox,
	},
}
