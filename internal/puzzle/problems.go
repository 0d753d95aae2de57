package puzzle

import "redcodegreencode/internal/model"

// round2Problems is the fixed ordered list of debugging exercises.
// Every team receives its own copy at generation time.
var round2Problems = []model.Problem{
	{
		ID:          "p1",
		Title:       "The Faulty Summation",
		Language:    "python",
		Description: "The following code is supposed to calculate the sum of all even numbers in a list, but it fails for some inputs. Find and fix the bug.",
		BuggyCode:   "def sum_evens(nums):\n    total = 0\n    for n in nums:\n        if n % 2 == 1: # BUG HERE\n            total += n\n    return total",
		TestCases: []model.TestCase{
			{Input: "[1, 2, 3, 4]", Expected: "6", IsPublic: true},
			{Input: "[10, 15, 20]", Expected: "30", IsPublic: false},
		},
	},
	{
		ID:          "p2",
		Title:       "Palindrome Paradox",
		Language:    "cpp",
		Description: "A C++ function to check if a string is a palindrome. It seems to miss the middle character check or fails on case sensitivity. Fix it to be case-insensitive.",
		BuggyCode:   "#include <iostream>\n#include <string>\n#include <algorithm>\n\nbool isPalindrome(std::string s) {\n    std::string rev = s;\n    std::reverse(rev.begin(), rev.end());\n    return s == rev;\n}",
		TestCases: []model.TestCase{
			{Input: "Racecar", Expected: "true", IsPublic: true},
			{Input: "level", Expected: "true", IsPublic: false},
		},
	},
	{
		ID:          "p3",
		Title:       "Array Index out of Bounds",
		Language:    "java",
		Description: "This Java snippet finds the maximum value in an array. It crashes with an exception. Locate the boundary error.",
		BuggyCode:   "public class Solution {\n    public static int findMax(int[] arr) {\n        int max = arr[0];\n        for (int i = 0; i <= arr.length; i++) {\n            if (arr[i] > max) max = arr[i];\n        }\n        return max;\n    }\n}",
		TestCases: []model.TestCase{
			{Input: "[1, 5, 3]", Expected: "5", IsPublic: true},
			{Input: "[-10, 0, -5]", Expected: "0", IsPublic: false},
		},
	},
}
