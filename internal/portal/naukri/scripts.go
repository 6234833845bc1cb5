package naukri

import (
	"fmt"

	"github.com/jobsuitex/autoapply/internal/browser"
)

const (
	selLoginLink      = "a[title='Jobseeker Login']"
	selUsername       = "input[type='text']"
	selPassword       = "input[type='password']"
	selLoginSubmit    = "button[type='submit']"
	selLoginError     = ".server-err, .erLbl, .err-container"
	selLogout         = "a[title='Logout']"
	selSearchBar      = ".nI-gNb-sb__main"
	selKeywordInput   = "input.suggestor-input[placeholder='Enter keyword / designation / companies']"
	selLocationInput  = "input.suggestor-input[placeholder='Enter location']"
	selSearchButton   = "button.nI-gNb-sb__icon-wrapper"
	selSortButton     = "button#filter-sort"
	selSortMenu       = "ul[data-filter-id='sort']"
	selJobTuple       = ".cust-job-tuple"
	selApplyButton    = ".apply-button"
	selChatDrawer     = ".chatbot_DrawerContentWrapper"
	selCheckbox       = "input[type=\"checkbox\"]"
	selSendMessage    = ".sendMsg"
	skipOptionLabel   = "skip this question"
	jobsPath          = "/mnjuser/"
	homeURL           = "https://www.naukri.com/mnjuser/homepage"
	profileURL        = "https://www.naukri.com/mnjuser/profile"
	landingURL        = "https://www.naukri.com/"
	defaultSortOption = "Date"
)

// profileTextScript returns the rendered text of the profile page.
const profileTextScript = `document.body ? document.body.innerText : ""`

// extractScript reads every job tuple on the results view into objects
// shaped like models.JobListing.
const extractScript = `Array.from(document.querySelectorAll('.cust-job-tuple')).map(job => {
	const text = sel => job.querySelector(sel)?.innerText?.trim() || "";
	const title = sel => job.querySelector(sel)?.title?.trim() || "";
	const titleEl = job.querySelector('h2 > a.title');
	return {
		title: titleEl?.innerText?.trim() || "",
		apply_link: titleEl?.href || "",
		company: text('a.comp-name'),
		rating: text('a.rating .main-2'),
		reviews: text('a.review'),
		experience: title('.exp span[title]'),
		salary: title('.sal span[title]'),
		location: title('.loc span[title]'),
		description: text('.job-desc'),
		skills: Array.from(job.querySelectorAll('ul.tags-gt li')).map(li => li.innerText.trim()),
		posted_on: text('.job-post-day')
	};
})`

// nextPageScript clicks the enabled "Next" pagination anchor if any.
const nextPageScript = `(() => {
	const next = Array.from(document.querySelectorAll('a.styles_btn-secondary__2AsIP'))
		.find(a => a.innerText.trim() === 'Next' && !a.hasAttribute('disabled'));
	if (!next) return false;
	next.click();
	return true;
})()`

// latestQuestionScript returns the newest bot message in the chat drawer.
const latestQuestionScript = `(() => {
	const items = Array.from(document.querySelectorAll('.chatbot_ListItem'));
	const last = items[items.length - 1];
	return last?.querySelector('.botMsg span')?.innerText?.trim() || "";
})()`

// radioLabelsScript lists the radio option labels of the current question.
const radioLabelsScript = `Array.from(document.querySelectorAll('.ssrc__radio-btn-container label')).map(l => l.innerText.trim())`

// textSkipScript reports a "Skip this question" chip under a text question.
const textSkipScript = `Array.from(document.querySelectorAll('.chatbot_Chip, .chipItem'))
	.some(c => c.innerText.trim().toLowerCase() === 'skip this question')`

const clickTextSkipScript = `(() => {
	const chip = Array.from(document.querySelectorAll('.chatbot_Chip, .chipItem'))
		.find(c => c.innerText.trim().toLowerCase() === 'skip this question');
	if (!chip) return false;
	chip.click();
	return true;
})()`

const successScript = `document.body.innerText.includes('You have successfully applied to')`

// clickRadioScript clicks the label of the i-th radio option.
func clickRadioScript(i int) string {
	return fmt.Sprintf(`(() => {
	const labels = document.querySelectorAll('.ssrc__radio-btn-container label');
	if (!labels[%d]) return false;
	labels[%d].click();
	return true;
})()`, i, i)
}

// setChatTextScript writes text into the chat's contenteditable input.
func setChatTextScript(text string) string {
	return fmt.Sprintf(`(() => {
	const input = document.querySelector('div[contenteditable="true"]');
	if (!input) return false;
	input.innerText = %s;
	input.dispatchEvent(new Event('input', { bubbles: true }));
	return true;
})()`, browser.JSString(text))
}

// clearInputScript empties an input so that typing replaces its value.
func clearInputScript(selector string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	el.value = '';
	el.dispatchEvent(new Event('input', { bubbles: true }));
	return true;
})()`, browser.JSString(selector))
}

func sortOptionSelector(option string) string {
	return fmt.Sprintf("li[title='%s'] a[data-id='filter-sort-f']", option)
}
